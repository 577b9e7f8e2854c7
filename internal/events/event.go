package events

import (
	"context"
	"errors"
	"time"

	models "github.com/fathima-sithara/mycloud/internal/media"
	"github.com/google/uuid"
)

type Type string

const (
	MediaUploaded Type = "media.uploaded"
	MediaUpdated  Type = "media.updated"
	MediaDeleted  Type = "media.deleted"
)

// Event tells subscribers that a listing they depend on changed.
type Event struct {
	ID          string            `json:"id"`
	Type        Type              `json:"type"`
	MediaID     string            `json:"media_id"`
	Owner       string            `json:"owner"`
	ContentType string            `json:"content_type"`
	Visibility  models.Visibility `json:"visibility"`
	At          time.Time         `json:"at"`
}

func New(t Type, m *models.Media) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		MediaID:     m.ID,
		Owner:       m.Owner,
		ContentType: m.ContentType,
		Visibility:  m.Visibility,
		At:          time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

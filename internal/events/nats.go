package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
)

type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	nc      natsConn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("mycloud-media"))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Publish sends to <subject>.<type>, e.g. media.events.media.deleted.
func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	if p == nil || p.nc == nil {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject+"."+string(ev.Type), b)
}

func (p *NATSPublisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

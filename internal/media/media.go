package models

import (
	"strings"
	"time"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// ParseVisibility accepts the enum values case-insensitively.
func ParseVisibility(s string) (Visibility, bool) {
	v := Visibility(strings.ToLower(strings.TrimSpace(s)))
	return v, v.Valid()
}

type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// KindOf classifies a content type. Anything that is neither image nor video is a document.
func KindOf(contentType string) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "image"):
		return KindImage
	case strings.Contains(ct, "video"):
		return KindVideo
	default:
		return KindDocument
	}
}

// Label is the capitalised kind used in user facing messages.
func (k Kind) Label() string {
	switch k {
	case KindImage:
		return "Image"
	case KindVideo:
		return "Video"
	default:
		return "Document"
	}
}

type Media struct {
	ID          string     `bson:"_id" json:"_id"`
	Owner       string     `bson:"owner" json:"owner"`
	Filename    string     `bson:"filename" json:"filename"`
	ContentType string     `bson:"content_type" json:"contentType"`
	Key         string     `bson:"key" json:"key"` // object store key
	URL         string     `bson:"url" json:"url"`
	Thumbnail   string     `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Size        int64      `bson:"size" json:"size"`
	Visibility  Visibility `bson:"visibility" json:"visibility"`
	Keywords    string     `bson:"keywords" json:"keywords"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
}

func (m *Media) Kind() Kind { return KindOf(m.ContentType) }

// Patch is a partial update of the two mutable fields.
type Patch struct {
	Keywords   *string     `json:"keywords,omitempty" validate:"omitempty,max=512"`
	Visibility *Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=private public"`
}

func (p Patch) Empty() bool { return p.Keywords == nil && p.Visibility == nil }

package repository

import (
	"errors"
	"math"
	"regexp"
	"strings"

	models "github.com/fathima-sithara/mycloud/internal/media"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("not found")

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Owner      string
	Visibility models.Visibility
	Keyword    string // case-insensitive substring of keywords

	// Shared limits the result to what Viewer may see: public records plus
	// Viewer's own. An empty Viewer sees public records only.
	Shared bool
	Viewer string
}

func (f Filter) bson() bson.M {
	q := bson.M{}
	if f.Owner != "" {
		q["owner"] = f.Owner
	}
	if f.Visibility != "" {
		q["visibility"] = f.Visibility
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		q["keywords"] = primitive.Regex{Pattern: regexp.QuoteMeta(kw), Options: "i"}
	}
	if f.Shared {
		or := bson.A{bson.M{"visibility": models.VisibilityPublic}}
		if f.Viewer != "" {
			or = append(or, bson.M{"owner": f.Viewer})
		}
		q["$or"] = or
	}
	return q
}

// match mirrors bson() for the in-memory repository.
func (f Filter) match(m *models.Media) bool {
	if f.Owner != "" && m.Owner != f.Owner {
		return false
	}
	if f.Visibility != "" && m.Visibility != f.Visibility {
		return false
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" &&
		!strings.Contains(strings.ToLower(m.Keywords), strings.ToLower(kw)) {
		return false
	}
	if f.Shared && m.Visibility != models.VisibilityPublic && (f.Viewer == "" || m.Owner != f.Viewer) {
		return false
	}
	return true
}

// pageBounds turns a 0-based page into skip/limit. ok is false for pages that can hold nothing.
func pageBounds(page, size int) (skip, limit int64, ok bool) {
	if page < 0 || size <= 0 || int64(page) > math.MaxInt64/int64(size) {
		return 0, 0, false
	}
	return int64(page) * int64(size), int64(size), true
}

package repository

import (
	"math"
	"testing"

	models "github.com/fathima-sithara/mycloud/internal/media"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterBSON(t *testing.T) {
	assert.Equal(t, bson.M{}, Filter{}.bson())

	q := Filter{Owner: "u1", Visibility: models.VisibilityPublic, Keyword: " a.b "}.bson()
	assert.Equal(t, "u1", q["owner"])
	assert.Equal(t, models.VisibilityPublic, q["visibility"])
	assert.Equal(t, primitive.Regex{Pattern: `a\.b`, Options: "i"}, q["keywords"])

	q = Filter{Shared: true}.bson()
	assert.Equal(t, bson.A{bson.M{"visibility": models.VisibilityPublic}}, q["$or"])
	q = Filter{Shared: true, Viewer: "u1"}.bson()
	assert.Equal(t, bson.A{bson.M{"visibility": models.VisibilityPublic}, bson.M{"owner": "u1"}}, q["$or"])
}

func TestFilterMatch(t *testing.T) {
	m := &models.Media{Owner: "u1", Visibility: models.VisibilityPrivate, Keywords: "Sunset Beach"}

	assert.True(t, Filter{}.match(m))
	assert.True(t, Filter{Keyword: "sunset"}.match(m))
	assert.True(t, Filter{Keyword: "BEACH"}.match(m))
	assert.False(t, Filter{Keyword: "mountain"}.match(m))
	assert.False(t, Filter{Owner: "u2"}.match(m))
	assert.False(t, Filter{Visibility: models.VisibilityPublic}.match(m))

	assert.False(t, Filter{Shared: true}.match(m))
	assert.False(t, Filter{Shared: true, Viewer: "u2"}.match(m))
	assert.True(t, Filter{Shared: true, Viewer: "u1"}.match(m))
	pub := &models.Media{Owner: "u1", Visibility: models.VisibilityPublic}
	assert.True(t, Filter{Shared: true}.match(pub))
}

func TestPageBounds(t *testing.T) {
	skip, limit, ok := pageBounds(0, 5)
	assert.True(t, ok)
	assert.Equal(t, int64(0), skip)
	assert.Equal(t, int64(5), limit)

	skip, _, ok = pageBounds(3, 5)
	assert.True(t, ok)
	assert.Equal(t, int64(15), skip)

	_, _, ok = pageBounds(-1, 5)
	assert.False(t, ok)
	_, _, ok = pageBounds(0, 0)
	assert.False(t, ok)

	cases := []struct {
		page, size int
		ok         bool
	}{
		{math.MaxInt64 / 12, 12, true},
		{math.MaxInt64/12 + 1, 12, false},
		{1 << 62, 12, false},
		{math.MaxInt64, 1, true},
		{math.MaxInt64, 2, false},
	}
	for _, c := range cases {
		skip, _, ok := pageBounds(c.page, c.size)
		assert.Equal(t, c.ok, ok, "page %d size %d", c.page, c.size)
		assert.GreaterOrEqual(t, skip, int64(0))
	}
}

func TestPatchSet(t *testing.T) {
	kw := "tags"
	vis := models.VisibilityPublic
	assert.Equal(t, bson.M{}, patchSet(models.Patch{}))
	assert.Equal(t, bson.M{"keywords": "tags", "visibility": vis}, patchSet(models.Patch{Keywords: &kw, Visibility: &vis}))
}

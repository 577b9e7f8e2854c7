package gallery

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	models "github.com/fathima-sithara/mycloud/internal/media"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	GlyphVideo    = "▶"
	GlyphDocument = "📄"
)

// Card is one rendered tile. Images show their own bytes; everything else gets
// a placeholder, with a glyph for videos and documents.
type Card struct {
	Media       *models.Media
	Preview     string
	Placeholder bool
	Glyph       string
}

type lister interface {
	UserMedia(ctx context.Context) ([]*models.Media, error)
	PreviewURL(ctx context.Context, id string) (string, error)
	Token() string
	SetToken(token string)
}

// previewWorkers bounds the preview lookups issued per refresh.
const previewWorkers = 4

// View holds the caller's media of one kind. State is replaced wholesale on
// every refresh. Concurrent refreshes for the same identity share one fetch,
// unless a change was announced after that fetch started.
type View struct {
	client lister
	kind   models.Kind
	notify Notifier
	sf     singleflight.Group
	unsub  func()
	gen    atomic.Uint64

	mu       sync.RWMutex
	items    []*models.Media
	previews map[string]string
	applied  uint64
	loaded   bool
}

type snapshot struct {
	items    []*models.Media
	previews map[string]string
}

// NewView subscribes to bus so that any mutation elsewhere triggers a refresh.
// Refresh failures from bus triggers are reported through n.
func NewView(c lister, kind models.Kind, bus *Bus, n Notifier) *View {
	v := &View{client: c, kind: kind, notify: n}
	if bus != nil {
		v.unsub = bus.Subscribe(func() {
			v.invalidate()
			go func() {
				if err := v.Refresh(context.Background()); err != nil {
					reportError(v.notify, err)
				}
			}()
		})
	}
	return v
}

func (v *View) Kind() models.Kind { return v.kind }

// invalidate marks fetches already in flight as too old to join.
func (v *View) invalidate() { v.gen.Add(1) }

// Refresh fetches the caller's media and keeps the items of the view's kind.
func (v *View) Refresh(ctx context.Context) error {
	token := v.client.Token()
	gen := v.gen.Load()
	key := token + "#" + strconv.FormatUint(gen, 10)
	res, err, _ := v.sf.Do(key, func() (interface{}, error) {
		return v.fetch(ctx)
	})
	if err != nil {
		return err
	}
	// an identity switch while fetching makes this result stale
	if v.client.Token() != token {
		return nil
	}

	snap := res.(*snapshot)
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen < v.applied {
		return nil
	}
	v.applied = gen
	v.items, v.previews = snap.items, snap.previews
	v.loaded = true
	return nil
}

func (v *View) fetch(ctx context.Context) (*snapshot, error) {
	all, err := v.client.UserMedia(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*models.Media, 0, len(all))
	for _, m := range all {
		if m.Kind() == v.kind {
			items = append(items, m)
		}
	}

	// a failed lookup leaves the card on its placeholder
	urls := make([]string, len(items))
	var g errgroup.Group
	g.SetLimit(previewWorkers)
	for i, m := range items {
		if m.Kind() != models.KindImage {
			continue
		}
		i, m := i, m
		g.Go(func() error {
			if u, err := v.client.PreviewURL(ctx, m.ID); err == nil {
				urls[i] = u
			}
			return nil
		})
	}
	_ = g.Wait()

	previews := make(map[string]string, len(items))
	for i, m := range items {
		if urls[i] != "" {
			previews[m.ID] = urls[i]
		}
	}
	return &snapshot{items: items, previews: previews}, nil
}

// SetIdentity switches the bearer token and reloads.
func (v *View) SetIdentity(ctx context.Context, token string) error {
	v.client.SetToken(token)
	v.mu.Lock()
	v.items, v.previews, v.loaded = nil, nil, false
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *View) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

func (v *View) Items() []*models.Media {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*models.Media, len(v.items))
	copy(out, v.items)
	return out
}

// Find returns the item with the given id or, failing that, filename.
func (v *View) Find(ref string) *models.Media {
	items := v.Items()
	for _, m := range items {
		if m.ID == ref {
			return m
		}
	}
	for _, m := range items {
		if m.Filename == ref {
			return m
		}
	}
	return nil
}

// Cards renders the items. Images use their preview link; anything without
// one gets a placeholder, with a glyph for videos and application documents.
func (v *View) Cards() []Card {
	v.mu.RLock()
	items, previews := v.items, v.previews
	v.mu.RUnlock()

	cards := make([]Card, 0, len(items))
	for _, m := range items {
		card := Card{Media: m}
		if m.Kind() == models.KindImage {
			card.Preview = previews[m.ID]
		}
		card.Placeholder = card.Preview == ""
		ct := strings.ToLower(m.ContentType)
		switch {
		case strings.Contains(ct, "video"):
			card.Glyph = GlyphVideo
		case strings.Contains(ct, "application"):
			card.Glyph = GlyphDocument
		}
		cards = append(cards, card)
	}
	return cards
}

func (v *View) Close() {
	if v.unsub != nil {
		v.unsub()
	}
}

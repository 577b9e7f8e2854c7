package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	models "github.com/fathima-sithara/mycloud/internal/media"
)

// MemoryRepo is an in-process MediaRepo with the same ordering and matching
// rules as the Mongo one. Used when mongodb.uri is "memory://".
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]*models.Media
	seq   map[string]int64
	next  int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: map[string]*models.Media{}, seq: map[string]int64{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, m *models.Media) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.items[m.ID] = &cp
	r.next++
	r.seq[m.ID] = r.next
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*models.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepo) GetByFilename(ctx context.Context, filename string, f Filter) (*models.Media, error) {
	for _, m := range r.sorted(f) {
		if m.Filename == filename {
			return m, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]*models.Media, error) {
	return r.sorted(f), nil
}

func (r *MemoryRepo) Page(ctx context.Context, f Filter, page, size int) ([]*models.Media, error) {
	skip, limit, ok := pageBounds(page, size)
	all := r.sorted(f)
	if !ok || skip >= int64(len(all)) {
		return []*models.Media{}, nil
	}
	end := skip + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[skip:end], nil
}

func (r *MemoryRepo) UpdateMeta(ctx context.Context, id string, p models.Patch) (*models.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Keywords != nil {
		m.Keywords = *p.Keywords
	}
	if p.Visibility != nil {
		m.Visibility = *p.Visibility
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	delete(r.seq, id)
	return nil
}

func (r *MemoryRepo) sorted(f Filter) []*models.Media {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Media{}
	for _, m := range r.items {
		if f.match(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return r.seq[out[i].ID] < r.seq[out[j].ID]
	})
	return out
}

package gallery

import "sync"

// Bus tells every subscribed view that the media listing changed.
// Mutating actions publish on it; views refresh when they hear it.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

func NewBus() *Bus {
	return &Bus{subs: map[int]func(){}}
}

// Subscribe registers fn and returns a function that removes it again.
func (b *Bus) Subscribe(fn func()) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

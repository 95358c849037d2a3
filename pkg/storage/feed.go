package storage

import (
	"sync"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// changeFeed fans change events out to subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type changeFeed struct {
	mu      sync.Mutex
	subs    map[int]chan domain.ChangeEvent
	nextID  int
	closed  bool
	history []domain.ChangeEvent
	keep    int
}

func newChangeFeed(keep int) *changeFeed {
	return &changeFeed{
		subs: make(map[int]chan domain.ChangeEvent),
		keep: keep,
	}
}

func (f *changeFeed) subscribe(buffer int) (<-chan domain.ChangeEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.ChangeEvent, buffer)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
}

func (f *changeFeed) publish(event domain.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.history = append(f.history, event)
	if len(f.history) > f.keep {
		f.history = f.history[len(f.history)-f.keep:]
	}
	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// recent returns up to n events, newest first
func (f *changeFeed) recent(n int) []domain.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= 0 || n > len(f.history) {
		n = len(f.history)
	}
	out := make([]domain.ChangeEvent, 0, n)
	for i := len(f.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.history[i])
	}
	return out
}

func (f *changeFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

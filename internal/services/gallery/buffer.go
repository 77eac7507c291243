package gallery

import (
	"sync"

	"github.com/eapache/queue"
)

// DefaultCapacity is the number of recent violations kept for display.
const DefaultCapacity = 5

// Buffer is a bounded FIFO. Pushing past capacity evicts the single oldest entry,
// so Len never exceeds Cap. It is safe for concurrent use.
type Buffer[T any] struct {
	mu       sync.RWMutex
	q        *queue.Queue
	capacity int
}

func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{q: queue.New(), capacity: capacity}
}

// Push appends v and returns the evicted entry, if any.
func (b *Buffer[T]) Push(v T) (evicted T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.q.Add(v)
	if b.q.Length() > b.capacity {
		evicted, ok = b.q.Remove().(T), true
	}
	return evicted, ok
}

// Items returns a copy of the entries, oldest first.
func (b *Buffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.q.Length())
	for i := range out {
		out[i] = b.q.Get(i).(T)
	}
	return out
}

func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.q.Length()
}

func (b *Buffer[T]) Cap() int { return b.capacity }

func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.q = queue.New()
}

package bus

import (
	"context"
	"fmt"
	"sync"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
)

// memoryBus delivers changes to forwarders in this process only.
type memoryBus struct {
	mu     sync.RWMutex
	subs   map[int]func(types.ScoreChange)
	nextID int
	closed bool
}

func NewMemoryBus() Bus {
	return &memoryBus{subs: map[int]func(types.ScoreChange){}}
}

func (b *memoryBus) Publish(_ context.Context, change types.ScoreChange) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus closed")
	}
	for _, fn := range b.subs {
		fn(change)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onChange func(c types.ScoreChange)) error {
	if onChange == nil {
		return fmt.Errorf("onChange callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus closed")
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = onChange
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = map[int]func(types.ScoreChange){}
	return nil
}

package task

import (
	"context"
	"sync"
)

// Change describes one committed store mutation, delivered to subscribers.
type Change struct {
	Op    string   // "create", "update", "delete", "batch_create", "batch_delete", "replace"
	IDs   []string // affected task IDs; empty for replace
	Count int      // task count after the mutation, -1 if unknown
}

// Bus wraps a Store with in-process fan-out notification. When a mutation
// commits, all subscribers receive a Change. Reads pass straight through.
type Bus struct {
	Store
	mu   sync.RWMutex
	subs map[chan Change]struct{}
}

// NewBus creates a Bus wrapping the given store.
func NewBus(store Store) *Bus {
	return &Bus{
		Store: store,
		subs:  make(map[chan Change]struct{}),
	}
}

// Subscribe returns a buffered channel that receives all future changes.
func (b *Bus) Subscribe() chan Change {
	ch := make(chan Change, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Change) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

func (b *Bus) publish(ctx context.Context, op string, ids []string) {
	count := -1
	if n, err := b.Store.Count(ctx); err == nil {
		count = n
	}
	c := Change{Op: op, IDs: ids, Count: count}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
			// subscriber is behind; drop to avoid blocking the mutation path
		}
	}
	b.mu.RUnlock()
}

// Create delegates to the underlying store, then notifies subscribers.
func (b *Bus) Create(ctx context.Context, t *Task) (*Task, error) {
	created, err := b.Store.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, "create", []string{created.ID})
	return created, nil
}

// Update delegates to the underlying store, then notifies subscribers.
func (b *Bus) Update(ctx context.Context, id string, updates map[string]any) (*Task, error) {
	updated, err := b.Store.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, "update", []string{id})
	return updated, nil
}

// Delete delegates to the underlying store, then notifies subscribers.
func (b *Bus) Delete(ctx context.Context, id string) error {
	if err := b.Store.Delete(ctx, id); err != nil {
		return err
	}
	b.publish(ctx, "delete", []string{id})
	return nil
}

// BatchCreate delegates to the underlying store, then notifies subscribers once.
func (b *Bus) BatchCreate(ctx context.Context, ts []Task) ([]Task, error) {
	created, err := b.Store.BatchCreate(ctx, ts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(created))
	for i := range created {
		ids[i] = created[i].ID
	}
	b.publish(ctx, "batch_create", ids)
	return created, nil
}

// BatchDelete delegates to the underlying store, then notifies subscribers once.
func (b *Bus) BatchDelete(ctx context.Context, ids []string) error {
	if err := b.Store.BatchDelete(ctx, ids); err != nil {
		return err
	}
	b.publish(ctx, "batch_delete", ids)
	return nil
}

// ReplaceAll delegates to the underlying store, then notifies subscribers.
func (b *Bus) ReplaceAll(ctx context.Context, ts []Task) error {
	if err := b.Store.ReplaceAll(ctx, ts); err != nil {
		return err
	}
	b.publish(ctx, "replace", nil)
	return nil
}

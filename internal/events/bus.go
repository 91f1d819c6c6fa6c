package events

import "sync"

// StockChangedItem names one product whose stock level changed and the
// signed quantity delta applied to it. Sales publish negative deltas,
// received purchases positive ones.
type StockChangedItem struct {
	ProductID string
	Delta     int
}

// StockChanged is published after a committed sale or a received purchase
// changes stock levels, so the component owning the product snapshot can
// refresh itself instead of relying on a blanket cache invalidation.
// Source identifies the originating record, e.g. "sale:<id>".
type StockChanged struct {
	Source string
	Items  []StockChangedItem
}

// Bus is a minimal in-process publish/subscribe fan-out for stock change
// notifications. Handlers run synchronously on the publishing goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers []func(StockChanged)
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for future StockChanged events.
func (b *Bus) Subscribe(handler func(StockChanged)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers the event to every subscribed handler.
func (b *Bus) Publish(event StockChanged) {
	b.mu.RLock()
	handlers := make([]func(StockChanged), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

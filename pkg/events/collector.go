package events

import "sync"

// EventCollector buffers events raised while a request is scored so they
// are published only after the result is known. The zero value is ready
// to use and safe for concurrent use.
type EventCollector struct {
	mu      sync.Mutex
	pending []DomainEvent
}

// Record buffers e.
func (c *EventCollector) Record(e DomainEvent) {
	c.mu.Lock()
	c.pending = append(c.pending, e)
	c.mu.Unlock()
}

// Pending reports how many events are buffered.
func (c *EventCollector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Drain returns the buffered events in record order and empties the buffer.
func (c *EventCollector) Drain() []DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

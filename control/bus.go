package control

import (
	"errors"
	"sync"
)

// DefaultDrainBudget is the number of messages applied per drain unless
// configured otherwise.
const DefaultDrainBudget = 10

var ErrClosed = errors.New("bus closed")

// Bus is an unbounded queue of messages with many producers (UI, MIDI input,
// file watchers) and a single consumer that drains it at its own pace. Send
// never blocks and never drops a message.
type Bus struct {
	mu     sync.Mutex
	queue  []Message
	batch  []Message
	closed bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Send queues a message. After Close, it returns ErrClosed.
func (b *Bus) Send(m Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.queue = append(b.queue, m)
	return nil
}

// Close stops accepting messages. Messages already queued can still be
// drained.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Len is the number of queued messages.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Drain removes at most max messages from the front of the queue and calls fn
// for each in the order they were sent. The rest stay queued for the next
// drain. max <= 0 drains everything. fn is called without holding the lock,
// so it may send more messages; those are not part of this drain. Only one
// goroutine may drain at a time.
func (b *Bus) Drain(max int, fn func(Message)) int {
	b.mu.Lock()
	n := len(b.queue)
	if max > 0 && max < n {
		n = max
	}
	b.batch = append(b.batch[:0], b.queue[:n]...)
	rest := copy(b.queue, b.queue[n:])
	clear(b.queue[rest:])
	b.queue = b.queue[:rest]
	b.mu.Unlock()
	for _, m := range b.batch {
		fn(m)
	}
	clear(b.batch)
	return n
}

package queue

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/invoicing/backend/internal/application/ingestion"
)

// MemoryQueue is an in-process at-least-once queue. A nacked message goes back to
// the tail of the queue until it has been delivered MaxDeliveries times, after which
// it is moved to the dead-letter list.
type MemoryQueue struct {
	mu            sync.Mutex
	ready         []*memoryMessage
	inFlight      map[string]*memoryMessage
	dead          []*memoryMessage
	maxDeliveries int
	seq           int64
	closed        bool
	notify        chan struct{}
}

type memoryMessage struct {
	id         string
	body       []byte
	deliveries int
}

// MemoryOption configures a MemoryQueue
type MemoryOption func(*MemoryQueue)

// WithMaxDeliveries dead-letters a message after n deliveries. Zero means unlimited.
func WithMaxDeliveries(n int) MemoryOption {
	return func(q *MemoryQueue) { q.maxDeliveries = n }
}

// NewMemoryQueue creates an empty queue
func NewMemoryQueue(opts ...MemoryOption) *MemoryQueue {
	q := &MemoryQueue{
		inFlight: make(map[string]*memoryMessage),
		notify:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish appends a message
func (q *MemoryQueue) Publish(_ context.Context, body []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.seq++
	q.ready = append(q.ready, &memoryMessage{
		id:   strconv.FormatInt(q.seq, 10),
		body: append([]byte(nil), body...),
	})
	q.mu.Unlock()

	q.signal()
	return nil
}

// Receive blocks until a message is ready, ctx is done, or the queue is closed
func (q *MemoryQueue) Receive(ctx context.Context) (ingestion.Delivery, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		if len(q.ready) > 0 {
			msg := q.ready[0]
			q.ready = q.ready[1:]
			msg.deliveries++
			q.inFlight[msg.id] = msg
			more := len(q.ready) > 0
			q.mu.Unlock()

			if more {
				q.signal()
			}
			return &memoryDelivery{queue: q, msg: msg}, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// Close wakes any blocked receiver
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
	return nil
}

// Ready returns the number of messages waiting for delivery
func (q *MemoryQueue) Ready() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// InFlight returns the number of delivered but unsettled messages
func (q *MemoryQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// DeadLetters returns the bodies of dead-lettered messages
func (q *MemoryQueue) DeadLetters() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, 0, len(q.dead))
	for _, m := range q.dead {
		out = append(out, m.body)
	}
	return out
}

func (q *MemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) settle(msg *memoryMessage, requeue bool) {
	q.mu.Lock()
	delete(q.inFlight, msg.id)
	if requeue {
		if q.maxDeliveries > 0 && msg.deliveries >= q.maxDeliveries {
			q.dead = append(q.dead, msg)
			requeue = false
		} else {
			q.ready = append(q.ready, msg)
		}
	}
	q.mu.Unlock()

	if requeue {
		q.signal()
	}
}

type memoryDelivery struct {
	queue   *MemoryQueue
	msg     *memoryMessage
	settled atomic.Bool
}

func (d *memoryDelivery) ID() string   { return d.msg.id }
func (d *memoryDelivery) Body() []byte { return d.msg.body }

// Attempt is the 1-based delivery count
func (d *memoryDelivery) Attempt() int { return d.msg.deliveries }

func (d *memoryDelivery) Ack(context.Context) error {
	if d.settled.CompareAndSwap(false, true) {
		d.queue.settle(d.msg, false)
	}
	return nil
}

func (d *memoryDelivery) Nack(context.Context) error {
	if d.settled.CompareAndSwap(false, true) {
		d.queue.settle(d.msg, true)
	}
	return nil
}

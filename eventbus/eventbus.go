// Package eventbus provides an in-process publish/subscribe bus. The account
// resolver publishes lifecycle events to it once a resolution has committed.
package eventbus

import (
	"context"
	"sync"

	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"github.com/google/uuid"
)

// Handler processes a message. Returned errors are logged.
type Handler func(context.Context, *Message) error

// Message is delivered once to each subscriber of its topic.
type Message struct {
	ID    string
	Topic string
	Data  any
}

// Option configures the bus.
type Option func(*Bus)

// WithWorkerPool sets the number of worker goroutines for processing events.
// Default is 16 workers. Set to 0 to use unbounded goroutines.
func WithWorkerPool(size int) Option {
	return func(b *Bus) {
		b.workers = size
	}
}

// WithQueueSize sets how many undelivered messages may be buffered. Default is
// 256; further messages are dropped until workers catch up.
func WithQueueSize(size int) Option {
	return func(b *Bus) {
		b.jobs = make(chan job, size)
	}
}

// New returns a bus whose handlers run with ctx, scoped to an "eventbus"
// logger.
func New(ctx context.Context, opts ...Option) *Bus {
	b := &Bus{
		subscriberCtx: logging.With(ctx, logging.FromContext(ctx).Named("eventbus")),
		workers:       16,
		jobs:          make(chan job, 256),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type job struct {
	ctx     context.Context
	handler Handler
	msg     *Message
}

// Bus is an in-memory event bus.
type Bus struct {
	subscribers   map[string][]Handler
	subscriberCtx context.Context

	mu sync.Mutex
	wg sync.WaitGroup

	jobs    chan job
	workers int
	started bool
	closed  bool
}

// Subscribe registers a handler for topic.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers == nil {
		b.subscribers = make(map[string][]Handler)
	}
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish sends data to every subscriber of topic without blocking. Messages
// published after Shutdown, or while the queue is full, are dropped with a
// warning.
func (b *Bus) Publish(topic string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		logging.Warnw(b.subscriberCtx, "eventbus: publish after shutdown", "topic", topic)
		return
	}
	if !b.started {
		b.startWorkers()
		b.started = true
	}

	handlers := b.subscribers[topic]
	if len(handlers) == 0 {
		return
	}

	ctx := logging.With(b.subscriberCtx, logging.FromContext(b.subscriberCtx).Named(topic))
	for _, handler := range handlers {
		msg := &Message{ID: uuid.NewString(), Topic: topic, Data: data}

		b.wg.Add(1)
		if b.workers == 0 {
			go b.execute(ctx, handler, msg)
			continue
		}
		select {
		case b.jobs <- job{ctx: ctx, handler: handler, msg: msg}:
		default:
			b.wg.Done()
			logging.Warnw(ctx, "eventbus: queue full, dropping message", "message_id", msg.ID)
		}
	}
}

func (b *Bus) startWorkers() {
	for range b.workers {
		go b.worker()
	}
}

func (b *Bus) worker() {
	for job := range b.jobs {
		b.execute(job.ctx, job.handler, job.msg)
	}
}

// Shutdown stops accepting messages and waits for queued ones to finish.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.jobs)
	}
	b.mu.Unlock()

	return b.Wait(ctx)
}

// Wait blocks until all pending messages are processed or ctx is done.
func (b *Bus) Wait(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		b.wg.Wait()
	}()
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return errors.Errorf("eventbus: timeout waiting for handlers to finish: %w", ctx.Err())
	}
}

func (b *Bus) execute(ctx context.Context, handler Handler, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Wrap(r, 2)
			logging.Errorw(ctx, "eventbus: recovered from panic",
				"error", r, "error.stack_trace", string(err.Stack()))
		}
		b.wg.Done()
	}()
	if err := handler(ctx, msg); err != nil {
		logging.Errorw(ctx, "eventbus: handler error", "error", err, "message_id", msg.ID)
	}
}

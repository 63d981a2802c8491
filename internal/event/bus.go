package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Option configures a Bus.
type Option func(*Bus)

// WithAsyncQueueSize sets the async queue capacity.
func WithAsyncQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithAsyncWorkerCount sets the number of async workers.
func WithAsyncWorkerCount(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the logger used for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

type asyncJob struct {
	ctx   context.Context
	event any
	sub   *subscription
}

// Bus routes events to subscriptions by topic.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription

	queueSize int
	workers   int
	queue     chan asyncJob
	wg        sync.WaitGroup
	logger    *slog.Logger

	running atomic.Bool
	paused  atomic.Bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates a stopped bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		queueSize: 1024,
		workers:   4,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the async workers.
func (b *Bus) Start() error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrBusAlreadyRunning
	}
	b.queue = make(chan asyncJob, b.queueSize)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker(b.queue)
	}
	return nil
}

// Stop stops accepting events and waits for queued async events to be
// handled or ctx to be done.
func (b *Bus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return ErrBusNotRunning
	}
	b.mu.Lock()
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause drops events until Resume.
func (b *Bus) Pause()  { b.paused.Store(true) }
func (b *Bus) Resume() { b.paused.Store(false) }

func (b *Bus) IsRunning() bool { return b.running.Load() }
func (b *Bus) IsPaused() bool  { return b.paused.Load() }

// Subscribe registers handler for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}
	sub := newSubscription(uuid.NewString(), pattern, handler, opts...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	sort.SliceStable(b.subs, func(i, j int) bool {
		return b.subs[i].config.Priority < b.subs[j].config.Priority
	})
	return sub, nil
}

// SubscribeFunc is Subscribe for a plain function.
func (b *Bus) SubscribeFunc(pattern Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// SubscribePayload subscribes a handler that receives the payload of
// Event[T] values directly. Events of other payload types are skipped.
func SubscribePayload[T any](b *Bus, pattern Topic, fn func(ctx context.Context, payload T) error, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, HandlerFunc(func(ctx context.Context, event any) error {
		if e, ok := event.(Event[T]); ok {
			return fn(ctx, e.Payload)
		}
		return nil
	}), opts...)
}

// Unsubscribe cancels and removes sub.
func (b *Bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	sub.Cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.ID() {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers event to every matching subscription. Sync handlers
// run before Publish returns; their errors are joined into the result.
// Async handlers are queued.
func (b *Bus) Publish(ctx context.Context, event any) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}
	if b.paused.Load() {
		return nil
	}
	tp, ok := event.(TopicProvider)
	if !ok || !tp.EventTopic().IsValid() {
		return ErrInvalidEvent
	}
	t := tp.EventTopic()
	b.published.Add(1)

	var errs []error
	for _, sub := range b.match(t) {
		if !sub.shouldDeliver(event) {
			continue
		}
		if sub.config.DeliveryMode == DeliveryAsync {
			b.enqueue(asyncJob{ctx: ctx, event: event, sub: sub})
			continue
		}
		if err := b.deliver(ctx, event, sub); err != nil {
			errs = append(errs, &HandlerError{SubscriptionID: sub.id, Topic: t, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) match(t Topic) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*subscription
	for _, s := range b.subs {
		if t.Matches(s.topic) {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bus) enqueue(job asyncJob) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() {
		b.dropped.Add(1)
		return
	}
	select {
	case b.queue <- job:
	default:
		b.dropped.Add(1)
		b.logger.Warn("event queue full, dropping event", "topic", job.sub.topic, "subscription", job.sub.id)
	}
}

func (b *Bus) worker(queue <-chan asyncJob) {
	defer b.wg.Done()
	for job := range queue {
		if err := b.deliver(job.ctx, job.event, job.sub); err != nil {
			b.logger.Warn("async event handler failed", "topic", job.sub.topic, "error", err)
		}
	}
}

// deliver runs one handler, recovering panics.
func (b *Bus) deliver(ctx context.Context, event any, sub *subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			err = &PanicError{SubscriptionID: sub.id, Topic: sub.topic, Value: r}
			b.logger.Error("event handler panicked", "topic", sub.topic, "panic", r)
		}
	}()
	if err := sub.handler.Handle(ctx, event); err != nil {
		b.failed.Add(1)
		return err
	}
	b.delivered.Add(1)
	if sub.config.Once {
		_ = b.Unsubscribe(sub)
	}
	return nil
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := 0
	for _, s := range b.subs {
		if s.IsActive() {
			active++
		}
	}
	depth := len(b.queue)
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.published.Load(),
		EventsDelivered:   b.delivered.Load(),
		EventsDropped:     b.dropped.Load(),
		HandlerErrors:     b.failed.Load(),
		HandlerPanics:     b.panics.Load(),
		ActiveSubscribers: active,
		QueueDepth:        depth,
	}
}

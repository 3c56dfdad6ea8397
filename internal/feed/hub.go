// Package feed keeps live subscriptions to the ordered homework list and
// re-delivers the full list after every change.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/models"
)

// DefaultChannel is the pub/sub channel change signals travel on.
const DefaultChannel = "homeworks:changed"

// ErrClosed is returned by Subscribe after the hub has stopped.
var ErrClosed = errors.New("feed hub closed")

// Loader reads the full homework list, date descending.
type Loader interface {
	List(ctx context.Context) ([]models.Homework, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]models.Homework, error)

func (f LoaderFunc) List(ctx context.Context) ([]models.Homework, error) { return f(ctx) }

// Hub owns the live subscriptions of one API instance.
type Hub struct {
	loader   Loader
	notifier Notifier
	logger   *zap.Logger
	observe  func(active int)

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// Option customises a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSubscriberObserver reports the active subscriber count on every change.
func WithSubscriberObserver(fn func(active int)) Option {
	return func(h *Hub) { h.observe = fn }
}

// NewHub constructs a hub. A nil notifier selects an in-process one.
func NewHub(loader Loader, notifier Notifier, opts ...Option) *Hub {
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	h := &Hub{
		loader:   loader,
		notifier: notifier,
		logger:   zap.NewNop(),
		subs:     make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription is a scoped handle on the live list. C always holds the most
// recent snapshot not yet received; older undelivered snapshots are dropped.
type Subscription struct {
	C <-chan []models.Homework

	hub  *Hub
	ch   chan []models.Homework
	mu   sync.Mutex
	once sync.Once
	done chan struct{}
}

// Done is closed once the subscription is released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		s.mu.Lock()
		close(s.done)
		close(s.ch)
		s.mu.Unlock()
	})
}

func (s *Subscription) deliver(list []models.Homework) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.ch <- list:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Subscribe registers a subscriber and delivers the current list right
// away. The subscription is released when ctx ends or Close is called.
func (h *Hub) Subscribe(ctx context.Context) (*Subscription, error) {
	list, err := h.loader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load homework feed: %w", err)
	}

	ch := make(chan []models.Homework, 1)
	sub := &Subscription{C: ch, hub: h, ch: ch, done: make(chan struct{})}
	ch <- list

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.subs[sub] = struct{}{}
	active := len(h.subs)
	h.mu.Unlock()
	h.report(active)

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Publish signals that the homework list changed.
func (h *Hub) Publish(ctx context.Context) error {
	return h.notifier.Publish(ctx)
}

// Run listens for change signals and refreshes every subscriber until ctx
// ends, then releases all subscriptions. The hub is closed once Run returns,
// including when listening fails, so Subscribe reports ErrClosed instead of
// serving a feed that never changes.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()
	events, err := h.notifier.Listen(ctx)
	if err != nil {
		return fmt.Errorf("listen for feed changes: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			h.Refresh(ctx)
		}
	}
}

// Refresh reloads the list and delivers it to every subscriber.
func (h *Hub) Refresh(ctx context.Context) {
	subs := h.snapshotSubs()
	if len(subs) == 0 {
		return
	}
	list, err := h.loader.List(ctx)
	if err != nil {
		h.logger.Warn("feed refresh failed", zap.Error(err))
		return
	}
	for _, s := range subs {
		s.deliver(list)
	}
}

// Active returns the number of live subscriptions.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) snapshotSubs() []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		out = append(out, s)
	}
	return out
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	active := len(h.subs)
	h.mu.Unlock()
	h.report(active)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	for _, s := range h.snapshotSubs() {
		s.Close()
	}
}

func (h *Hub) report(active int) {
	if h.observe != nil {
		h.observe(active)
	}
}

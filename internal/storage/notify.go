package storage

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
)

// DefaultSubscriptionBuffer is the per-subscriber queue length.
// A subscriber that falls further behind misses notifications.
const DefaultSubscriptionBuffer = 32

// Change announces that a key was written or removed.
// Origin identifies the tab that made the change; it may be empty.
type Change struct {
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Origin    string    `json:"origin,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier fans Changes out to subscribers of a namespace.
// Delivery is best-effort: publishing never blocks on a slow subscriber.
//
// Every subscription owns a bus topic. The bus matches handlers by function
// pointer, so handlers sharing a topic could not be unsubscribed one by one.
type Notifier struct {
	bus    EventBus.Bus
	logger *slog.Logger
	seq    atomic.Uint64

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription receives Changes for one namespace on C.
type Subscription struct {
	C <-chan Change

	ch        chan Change
	namespace string
	topic     string
	notifier  *Notifier
	once      sync.Once
}

// NewNotifier creates a notifier with no subscribers.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		bus:    EventBus.New(),
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

func changeTopic(namespace string, id uint64) string {
	return "change:" + namespace + "#" + strconv.FormatUint(id, 10)
}

// Publish delivers c to every current subscriber of its namespace.
func (n *Notifier) Publish(c Change) {
	n.mu.RLock()
	topics := make([]string, 0, len(n.subs[c.Namespace]))
	for sub := range n.subs[c.Namespace] {
		topics = append(topics, sub.topic)
	}
	n.mu.RUnlock()

	// A topic closed since the snapshot has no handler left and is skipped.
	for _, topic := range topics {
		n.bus.Publish(topic, c)
	}
}

// Subscribe registers a new subscriber for namespace.
func (n *Notifier) Subscribe(namespace string) *Subscription {
	ch := make(chan Change, DefaultSubscriptionBuffer)
	sub := &Subscription{
		C:         ch,
		ch:        ch,
		namespace: namespace,
		topic:     changeTopic(namespace, n.seq.Add(1)),
		notifier:  n,
	}
	if err := n.bus.Subscribe(sub.topic, sub.deliver); err != nil {
		n.logger.Error("change topic registration failed", "namespace", namespace, "error", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.subs[namespace]
	if !ok {
		set = make(map[*Subscription]struct{})
		n.subs[namespace] = set
	}
	set[sub] = struct{}{}
	return sub
}

// SubscriberCount returns the number of open subscriptions for namespace.
func (n *Notifier) SubscriberCount(namespace string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[namespace])
}

// deliver runs under the bus lock, so it never races with Close.
func (s *Subscription) deliver(c Change) {
	select {
	case s.ch <- c:
	default:
		s.notifier.logger.Debug("dropped change notification",
			"namespace", c.Namespace,
			"key", c.Key,
		)
	}
}

// Close unregisters the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		n := s.notifier
		if err := n.bus.Unsubscribe(s.topic, s.deliver); err != nil {
			n.logger.Debug("change topic already gone", "topic", s.topic, "error", err)
		}

		n.mu.Lock()
		if set, ok := n.subs[s.namespace]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(n.subs, s.namespace)
			}
		}
		n.mu.Unlock()
		close(s.ch)
	})
}

// Package topics keeps the active subscriptions and publications of a
// bridge connection. Keys are exact, case-sensitive topic names.
package topics

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

const logPrefix = "topics:registry"

// Registry maps topics to at most one subscription and at most one
// publication each. Entries are replaced as whole values under a single
// lock, and callbacks are never invoked by the registry itself.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Subscription
	pubs map[string]Publication
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[string]Subscription),
		pubs: make(map[string]Publication),
	}
}

// Subscribe registers sub for its topic, replacing any previous entry. It
// returns the displaced callback, or nil when the topic had no subscription.
func (r *Registry) Subscribe(sub Subscription) (Callback, error) {
	if sub.Topic == "" || sub.Parser == nil || sub.Callback == nil {
		return nil, fmt.Errorf("%s - subscribe %q: %w", logPrefix, sub.Topic, ErrInvalidEntry)
	}

	r.mu.Lock()
	prev, replaced := r.subs[sub.Topic]
	r.subs[sub.Topic] = sub
	r.mu.Unlock()

	if replaced {
		slog.Debug(fmt.Sprintf("%s - replaced subscription topic=%s type=%s", logPrefix, sub.Topic, sub.Type))
		return prev.Callback, nil
	}
	slog.Debug(fmt.Sprintf("%s - subscribed topic=%s type=%s", logPrefix, sub.Topic, sub.Type))
	return nil, nil
}

// Unsubscribe removes the subscription for topic and returns it. Removing
// an absent topic is a no-op.
func (r *Registry) Unsubscribe(topic string) (Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[topic]
	if ok {
		delete(r.subs, topic)
	}
	return sub, ok
}

// Resolve returns the subscription for topic.
func (r *Registry) Resolve(topic string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[topic]
	return sub, ok
}

// Advertise registers pub for its topic, replacing any previous entry.
func (r *Registry) Advertise(pub Publication) error {
	if pub.Topic == "" || pub.Type == "" {
		return fmt.Errorf("%s - advertise %q: %w", logPrefix, pub.Topic, ErrInvalidEntry)
	}
	r.mu.Lock()
	r.pubs[pub.Topic] = pub
	r.mu.Unlock()
	return nil
}

// Unadvertise removes the publication for topic and returns it. Removing
// an absent topic is a no-op.
func (r *Registry) Unadvertise(topic string) (Publication, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pub, ok := r.pubs[topic]
	if ok {
		delete(r.pubs, topic)
	}
	return pub, ok
}

// Advertised returns the publication for topic.
func (r *Registry) Advertised(topic string) (Publication, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pub, ok := r.pubs[topic]
	return pub, ok
}

// Subscriptions returns a snapshot of all subscriptions sorted by topic.
func (r *Registry) Subscriptions() []Subscription {
	r.mu.RLock()
	out := make([]Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// Publications returns a snapshot of all publications sorted by topic.
func (r *Registry) Publications() []Publication {
	r.mu.RLock()
	out := make([]Publication, 0, len(r.pubs))
	for _, p := range r.pubs {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// Clear removes every entry, as on connection teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	n, m := len(r.subs), len(r.pubs)
	r.subs = make(map[string]Subscription)
	r.pubs = make(map[string]Publication)
	r.mu.Unlock()
	slog.Debug(fmt.Sprintf("%s - cleared subscriptions=%d publications=%d", logPrefix, n, m))
}

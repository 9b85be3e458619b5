package dispatch

import (
	"fmt"
	"sort"
	"sync"
)

// eventKey indexes subscriptions by namespace and bound event code.
// Namespace-wide subscriptions are stored under an empty code.
type eventKey struct {
	namespace string
	code      string
}

// Registry is the concurrent-safe store of live subscriptions. It maintains
// three indices that are always mutually consistent: by namespace, by
// subscription code, and by (namespace, event code). All queries return
// copies so callers never iterate shared slices while mutations happen.
type Registry struct {
	mu          sync.RWMutex
	byNamespace map[string][]*Subscription
	byCode      map[string]*Subscription
	byEvent     map[eventKey][]*Subscription
	seq         uint64
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		byNamespace: make(map[string][]*Subscription),
		byCode:      make(map[string]*Subscription),
		byEvent:     make(map[eventKey][]*Subscription),
	}
}

// Add inserts a subscription into all three indices and stamps its insertion
// sequence. Fails with ErrDuplicateCode if the code is already registered.
func (r *Registry) Add(sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[sub.code]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, sub.code)
	}

	sub.seq = r.seq
	r.seq++

	r.byCode[sub.code] = sub
	r.byNamespace[sub.namespace] = append(r.byNamespace[sub.namespace], sub)
	key := eventKey{namespace: sub.namespace, code: sub.eventCode}
	r.byEvent[key] = append(r.byEvent[key], sub)

	return nil
}

// RemoveByCode removes the subscription with the given code.
// Fails with ErrSubscriptionNotFound if absent.
func (r *Registry) RemoveByCode(code string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.byCode[code]
	if !exists {
		return nil, fmt.Errorf("%w: code %s", ErrSubscriptionNotFound, code)
	}
	r.removeLocked(sub)
	return sub, nil
}

// RemoveByHandler removes every subscription whose handler matches,
// optionally scoped to one namespace (empty namespace means all).
// Returns the number removed; no match is not an error.
func (r *Registry) RemoveByHandler(handler Handler, namespace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Subscription
	for _, sub := range r.byCode {
		if namespace != "" && sub.namespace != namespace {
			continue
		}
		if handlersEqual(sub.handler, handler) {
			matched = append(matched, sub)
		}
	}
	for _, sub := range matched {
		r.removeLocked(sub)
	}
	return len(matched)
}

// RemoveByEvent removes every subscription bound to the event code across
// all namespaces. Namespace-wide subscriptions carry no event code and are
// never matched. Returns the number removed; no match is not an error.
func (r *Registry) RemoveByEvent(eventCode string) int {
	if eventCode == "" {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Subscription
	for key, subs := range r.byEvent {
		if key.code == eventCode {
			matched = append(matched, subs...)
		}
	}
	for _, sub := range matched {
		r.removeLocked(sub)
	}
	return len(matched)
}

// RemoveByNamespace removes every subscription under the namespace.
// Returns the number removed.
func (r *Registry) RemoveByNamespace(namespace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.byNamespace[namespace]
	for _, sub := range append([]*Subscription(nil), subs...) {
		r.removeLocked(sub)
	}
	return len(subs)
}

// RemoveAll clears the registry.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byNamespace = make(map[string][]*Subscription)
	r.byCode = make(map[string]*Subscription)
	r.byEvent = make(map[eventKey][]*Subscription)
}

// removeLocked deletes sub from all three indices. Caller holds the lock.
func (r *Registry) removeLocked(sub *Subscription) {
	delete(r.byCode, sub.code)

	nsSubs := removeFromSlice(r.byNamespace[sub.namespace], sub.code)
	if len(nsSubs) == 0 {
		delete(r.byNamespace, sub.namespace)
	} else {
		r.byNamespace[sub.namespace] = nsSubs
	}

	key := eventKey{namespace: sub.namespace, code: sub.eventCode}
	evSubs := removeFromSlice(r.byEvent[key], sub.code)
	if len(evSubs) == 0 {
		delete(r.byEvent, key)
	} else {
		r.byEvent[key] = evSubs
	}
}

func removeFromSlice(subs []*Subscription, code string) []*Subscription {
	for i, s := range subs {
		if s.code == code {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

// Find returns the subscriptions matching a dispatch to (namespace,
// eventCode): those bound to exactly that event code plus the namespace-wide
// subscriptions, ordered by priority descending with registration order
// breaking ties. The returned slice is a copy; handlers run outside the lock.
func (r *Registry) Find(namespace, eventCode string) []*Subscription {
	r.mu.RLock()

	exact := r.byEvent[eventKey{namespace: namespace, code: eventCode}]
	var wide []*Subscription
	if eventCode != "" {
		wide = r.byEvent[eventKey{namespace: namespace, code: ""}]
	}

	result := make([]*Subscription, 0, len(exact)+len(wide))
	result = append(result, exact...)
	result = append(result, wide...)
	r.mu.RUnlock()

	if len(result) == 0 {
		return nil
	}
	sortSubscriptions(result)
	return result
}

// sortSubscriptions orders by priority descending, then insertion sequence
// ascending. The (priority, seq) key makes the tie-break deterministic
// without relying on incidental slice order.
func sortSubscriptions(subs []*Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority > subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})
}

// FindByCode returns the subscription with the given code.
func (r *Registry) FindByCode(code string) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.byCode[code]
	if !exists {
		return nil, fmt.Errorf("%w: code %s", ErrSubscriptionNotFound, code)
	}
	return sub, nil
}

// FindByHandler returns every subscription whose handler matches, optionally
// scoped to one namespace (empty namespace means all), in registration order.
func (r *Registry) FindByHandler(handler Handler, namespace string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Subscription
	for _, sub := range r.byCode {
		if namespace != "" && sub.namespace != namespace {
			continue
		}
		if handlersEqual(sub.handler, handler) {
			result = append(result, sub)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// FindByNamespace returns every subscription under the namespace in
// registration order. The returned slice is a copy.
func (r *Registry) FindByNamespace(namespace string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.byNamespace[namespace]
	if len(subs) == 0 {
		return nil
	}
	result := make([]*Subscription, len(subs))
	copy(result, subs)
	return result
}

// FindByEvent returns every subscription bound to the event code across all
// namespaces, in registration order. Namespace-wide subscriptions are not
// included; they carry no event code to match.
func (r *Registry) FindByEvent(eventCode string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Subscription
	for key, subs := range r.byEvent {
		if key.code == eventCode && key.code != "" {
			result = append(result, subs...)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCode)
}

// Namespaces returns every namespace with at least one subscription.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.byNamespace) == 0 {
		return nil
	}
	namespaces := make([]string, 0, len(r.byNamespace))
	for ns := range r.byNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces
}

package dispatch

// Subscription is a registered (handler, namespace, priority, persistence)
// tuple with a unique code. Subscriptions are immutable after creation;
// changing priority or namespace requires remove and re-add. Identity is the
// code: two subscriptions sharing a handler and namespace are distinct
// entities, each independently removable.
type Subscription struct {
	code       string
	eventCode  string
	namespace  string
	handler    Handler
	persistent bool
	priority   int
	once       bool
	filter     FilterFunc

	// seq is the registry insertion sequence, the deterministic tie-break
	// for equal priorities. Assigned by Registry.Add.
	seq uint64
}

// SubscribeConfig holds per-subscription settings.
type SubscribeConfig struct {
	// Namespace partitions the subscription space. Defaults to "global".
	Namespace string

	// Persistent flags the subscription for external reload across process
	// restarts. The dispatcher stores and exposes the flag but takes no
	// reload action itself; see the config package.
	Persistent bool

	// Priority determines execution order. Higher values run earlier.
	Priority int

	// Once auto-cancels the subscription after its first successful delivery.
	Once bool

	// Filter, when set, must return true for an event to be delivered.
	Filter FilterFunc
}

// DefaultSubscribeConfig returns the default subscription settings.
func DefaultSubscribeConfig() SubscribeConfig {
	return SubscribeConfig{Namespace: NamespaceGlobal}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*SubscribeConfig)

// WithNamespace sets the subscription namespace.
func WithNamespace(namespace string) SubscribeOption {
	return func(c *SubscribeConfig) {
		if namespace != "" {
			c.Namespace = namespace
		}
	}
}

// WithPersistent flags the subscription for external reload.
func WithPersistent() SubscribeOption {
	return func(c *SubscribeConfig) {
		c.Persistent = true
	}
}

// WithPriority sets the subscription priority. Higher runs earlier.
func WithPriority(priority int) SubscribeOption {
	return func(c *SubscribeConfig) {
		c.Priority = priority
	}
}

// WithOnce auto-cancels the subscription after its first successful delivery.
func WithOnce() SubscribeOption {
	return func(c *SubscribeConfig) {
		c.Once = true
	}
}

// WithFilter sets a delivery predicate.
func WithFilter(f FilterFunc) SubscribeOption {
	return func(c *SubscribeConfig) {
		c.Filter = f
	}
}

// newSubscription creates a subscription from a code, event key, handler,
// and options.
func newSubscription(code, eventCode string, handler Handler, opts ...SubscribeOption) *Subscription {
	cfg := DefaultSubscribeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Subscription{
		code:       code,
		eventCode:  eventCode,
		namespace:  cfg.Namespace,
		handler:    handler,
		persistent: cfg.Persistent,
		priority:   cfg.Priority,
		once:       cfg.Once,
		filter:     cfg.Filter,
	}
}

// Code returns the unique subscription code, the public removal handle.
func (s *Subscription) Code() string { return s.code }

// EventCode returns the event key the subscription matches against.
// Empty means namespace-wide: the subscription matches every event
// dispatched to its namespace.
func (s *Subscription) EventCode() string { return s.eventCode }

// Namespace returns the subscription's namespace.
func (s *Subscription) Namespace() string { return s.namespace }

// Handler returns the registered handler.
func (s *Subscription) Handler() Handler { return s.handler }

// Persistent reports whether the subscription is flagged for external reload.
func (s *Subscription) Persistent() bool { return s.persistent }

// Priority returns the subscription priority. Higher runs earlier.
func (s *Subscription) Priority() int { return s.priority }

// Once reports whether the subscription auto-cancels after first delivery.
func (s *Subscription) Once() bool { return s.once }

// IsNamespaceWide reports whether the subscription has no event filter.
func (s *Subscription) IsNamespaceWide() bool { return s.eventCode == "" }

// shouldDeliver applies the subscription's filter, if any.
func (s *Subscription) shouldDeliver(evt *Event) bool {
	return s.filter == nil || s.filter(evt)
}

package dispatch

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/dispatch/ident"
)

// defaultGen backs the package-level event factory. Each Dispatcher owns its
// own generator; this one only serves NewEvent and the builder.
var defaultGen = ident.NewUUID()

// Event identifies "what happened". Its identity fields (id, uuid, name,
// code) are immutable after construction; only the payload Data is mutable.
type Event struct {
	id   int64
	uuid string
	name string
	code string
	data *Data
}

// NewEvent creates an event with the given name and initial payload.
// The event code defaults to the name; use the builder's WithCode to bind a
// different machine-matchable key. The data map may be nil.
func NewEvent(name string, data map[string]any) *Event {
	return &Event{
		id:   defaultGen.NextID(),
		uuid: defaultGen.NextCode(),
		name: name,
		code: name,
		data: newData(data),
	}
}

// ID returns the process-unique numeric identifier.
func (e *Event) ID() int64 { return e.id }

// UUID returns the globally unique identifier.
func (e *Event) UUID() string { return e.uuid }

// Name returns the human-readable event label.
func (e *Event) Name() string { return e.name }

// Code returns the machine-matchable key used to pair the event with
// subscriptions that filter by event identity.
func (e *Event) Code() string { return e.code }

// Data returns the event's mutable payload store.
func (e *Event) Data() *Data { return e.data }

// Get is shorthand for Data().Get.
func (e *Event) Get(key string) (any, bool) { return e.data.Get(key) }

// Set is shorthand for Data().Set.
func (e *Event) Set(key string, value any) { e.data.Set(key, value) }

// Contains is shorthand for Data().Contains.
func (e *Event) Contains(key string) bool { return e.data.Contains(key) }

// IsZero reports whether the event is missing its identity fields.
// Such events are rejected by Dispatch.
func (e *Event) IsZero() bool {
	return e == nil || e.code == "" || e.name == ""
}

// String returns a debug representation.
func (e *Event) String() string {
	return fmt.Sprintf("Event(id=%d name=%q code=%q data=%v)", e.id, e.name, e.code, e.data.Map())
}

// Data is the separately owned mutable key/value store reached through an
// Event. It is safe for concurrent use. Mutating Data never touches the
// event's identity fields.
type Data struct {
	mu sync.RWMutex
	m  map[string]any
}

func newData(m map[string]any) *Data {
	if m == nil {
		m = make(map[string]any)
	}
	return &Data{m: m}
}

// Get returns the value for key and whether it was present.
func (d *Data) Get(key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.m[key]
	return v, ok
}

// Set stores a value under key.
func (d *Data) Set(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[key] = value
}

// Delete removes key from the store.
func (d *Data) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, key)
}

// Clear removes every entry.
func (d *Data) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m = make(map[string]any)
}

// Contains reports whether key is present.
func (d *Data) Contains(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.m[key]
	return ok
}

// Keys returns the stored keys in unspecified order.
func (d *Data) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.m))
	for k := range d.m {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored entries.
func (d *Data) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.m)
}

// IsEmpty reports whether the store holds no entries.
func (d *Data) IsEmpty() bool {
	return d.Len() == 0
}

// Map returns a shallow copy of the store's contents.
func (d *Data) Map() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]any, len(d.m))
	for k, v := range d.m {
		out[k] = v
	}
	return out
}

// Query evaluates a gjson path expression against the payload.
// Returns a zero Result if the payload cannot be serialized.
func (d *Data) Query(path string) gjson.Result {
	d.mu.RLock()
	raw, err := json.Marshal(d.m)
	d.mu.RUnlock()
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(raw, path)
}

// SetJSON stores a value at a sjson path expression, allowing nested
// structures to be built without manual map plumbing.
func (d *Data) SetJSON(path string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := json.Marshal(d.m)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	raw, err = sjson.SetBytes(raw, path, value)
	if err != nil {
		return fmt.Errorf("setting path %q: %w", path, err)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decoding event data: %w", err)
	}
	d.m = m
	return nil
}

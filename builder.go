package dispatch

import (
	"fmt"

	"github.com/dshills/dispatch/ident"
)

// EventBuilder constructs events fluently. A name is required; everything
// else defaults: the code to the name, the payload to an empty map.
type EventBuilder struct {
	name    string
	code    string
	data    map[string]any
	jsonOps []jsonOp
	gen     ident.Generator
}

type jsonOp struct {
	path  string
	value any
}

// NewEventBuilder creates an empty event builder.
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{data: make(map[string]any)}
}

// WithName sets the event name.
func (b *EventBuilder) WithName(name string) *EventBuilder {
	b.name = name
	return b
}

// WithCode binds a machine-matchable key distinct from the name.
func (b *EventBuilder) WithCode(code string) *EventBuilder {
	b.code = code
	return b
}

// WithData merges key/value pairs into the payload.
func (b *EventBuilder) WithData(data map[string]any) *EventBuilder {
	for k, v := range data {
		b.data[k] = v
	}
	return b
}

// WithValue sets a single payload entry.
func (b *EventBuilder) WithValue(key string, value any) *EventBuilder {
	b.data[key] = value
	return b
}

// WithJSON sets a payload value at a sjson path expression once the event is
// built, allowing nested payloads to be declared inline.
func (b *EventBuilder) WithJSON(path string, value any) *EventBuilder {
	b.jsonOps = append(b.jsonOps, jsonOp{path: path, value: value})
	return b
}

// WithGenerator overrides the identifier generator used for the event's
// id and uuid. Defaults to the package-level generator.
func (b *EventBuilder) WithGenerator(gen ident.Generator) *EventBuilder {
	b.gen = gen
	return b
}

// Build finalizes the event. Fails if no name was set.
func (b *EventBuilder) Build() (*Event, error) {
	if b.name == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	}

	gen := b.gen
	if gen == nil {
		gen = defaultGen
	}

	code := b.code
	if code == "" {
		code = b.name
	}

	evt := &Event{
		id:   gen.NextID(),
		uuid: gen.NextCode(),
		name: b.name,
		code: code,
		data: newData(b.data),
	}
	for _, op := range b.jsonOps {
		if err := evt.data.SetJSON(op.path, op.value); err != nil {
			return nil, err
		}
	}
	return evt, nil
}

// Package ident provides identifier generation for events, subscriptions,
// and notifications. Codes and IDs never repeat for the life of a generator.
package ident

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// baseID is the starting point for numeric IDs. Kept high to keep generated
// IDs visually distinct from small caller-chosen values in logs.
const baseID = 10000

// Generator produces process-unique identifiers.
type Generator interface {
	// NextID returns a monotonically increasing numeric identifier.
	NextID() int64

	// NextCode returns a string code unique for the generator's lifetime.
	NextCode() string
}

// UUIDGenerator issues UUIDv4 codes and sequential numeric IDs.
// It is safe for concurrent use.
type UUIDGenerator struct {
	counter atomic.Int64
}

// NewUUID creates a UUID-backed generator.
func NewUUID() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NextID returns the next numeric identifier, starting at 10000.
func (g *UUIDGenerator) NextID() int64 {
	return baseID + g.counter.Add(1) - 1
}

// NextCode returns a fresh UUIDv4 string.
func (g *UUIDGenerator) NextCode() string {
	return uuid.NewString()
}

// SequenceGenerator issues deterministic prefixed codes. Intended for tests
// and tooling that need reproducible identifiers. IDs and codes count
// independently.
type SequenceGenerator struct {
	prefix string
	ids    atomic.Int64
	codes  atomic.Int64
}

// NewSequence creates a deterministic generator with the given code prefix.
func NewSequence(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NextID returns the next numeric identifier, starting at 10000.
func (g *SequenceGenerator) NextID() int64 {
	return baseID + g.ids.Add(1) - 1
}

// NextCode returns "<prefix>-<n>" with n increasing from 1.
func (g *SequenceGenerator) NextCode() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.codes.Add(1))
}

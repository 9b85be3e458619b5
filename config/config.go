// Package config loads dispatcher defaults and a manifest of persistent
// subscriptions from TOML. The dispatcher core only stores the persistence
// flag; this package is the external collaborator that re-registers flagged
// subscriptions after a process restart, resolving handler names through a
// caller-supplied handler table.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/dispatch"
)

// Config is the on-disk dispatcher configuration.
type Config struct {
	Defaults      Defaults           `toml:"defaults"`
	Subscriptions []SubscriptionSpec `toml:"subscriptions"`
}

// Defaults holds dispatcher-wide settings.
type Defaults struct {
	// Namespace used by subscription specs that omit one.
	Namespace string `toml:"namespace"`
}

// SubscriptionSpec declares one subscription to restore at startup.
type SubscriptionSpec struct {
	// Event is the matchable event code; empty means namespace-wide.
	Event string `toml:"event"`

	// Handler names an entry in the handler table passed to Apply.
	Handler string `toml:"handler"`

	Namespace string `toml:"namespace"`
	Priority  int    `toml:"priority"`
}

// Load reads configuration from path. A missing file is not an error and
// returns a nil config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return parse(path, data)
}

// LoadFromReader reads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse("<reader>", data)
}

func parse(source string, data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", source, err)
	}
	if cfg.Defaults.Namespace == "" {
		cfg.Defaults.Namespace = dispatch.NamespaceGlobal
	}
	return &cfg, nil
}

// Validate checks every subscription spec names a handler present in the
// table.
func (c *Config) Validate(handlers map[string]dispatch.Handler) error {
	for i, spec := range c.Subscriptions {
		if spec.Handler == "" {
			return fmt.Errorf("subscription %d: handler name is required", i)
		}
		if _, ok := handlers[spec.Handler]; !ok {
			return fmt.Errorf("subscription %d: unknown handler %q", i, spec.Handler)
		}
	}
	return nil
}

// Apply registers every declared subscription on the dispatcher, marking
// each persistent (the manifest is their persistence). Handler names resolve
// through the handler table. Returns the subscription codes in manifest
// order. Nothing is registered if validation fails.
func Apply(d *dispatch.Dispatcher, cfg *Config, handlers map[string]dispatch.Handler) ([]string, error) {
	if cfg == nil {
		return nil, nil
	}
	if err := cfg.Validate(handlers); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(cfg.Subscriptions))
	for i, spec := range cfg.Subscriptions {
		ns := spec.Namespace
		if ns == "" {
			ns = cfg.Defaults.Namespace
		}

		var eventKey any
		if spec.Event != "" {
			eventKey = spec.Event
		}

		code, err := d.Subscribe(eventKey, handlers[spec.Handler],
			dispatch.WithNamespace(ns),
			dispatch.WithPriority(spec.Priority),
			dispatch.WithPersistent(),
		)
		if err != nil {
			return codes, fmt.Errorf("subscription %d: %w", i, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

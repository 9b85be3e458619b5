package dispatch

import "strings"

// Common filter predicates for delivery-time event filtering.

// FilterByName allows only events with the given name.
func FilterByName(name string) FilterFunc {
	return func(evt *Event) bool {
		return evt != nil && evt.Name() == name
	}
}

// FilterByNamePrefix allows only events whose name starts with prefix.
func FilterByNamePrefix(prefix string) FilterFunc {
	return func(evt *Event) bool {
		return evt != nil && strings.HasPrefix(evt.Name(), prefix)
	}
}

// FilterByKey allows only events whose payload contains the key.
func FilterByKey(key string) FilterFunc {
	return func(evt *Event) bool {
		return evt != nil && evt.Contains(key)
	}
}

// FilterByData allows only events whose payload matches a gjson path
// expression with the given value. The comparison uses the path result's
// canonical value, so numbers compare as float64 and objects never match.
func FilterByData(path string, want any) FilterFunc {
	return func(evt *Event) bool {
		if evt == nil {
			return false
		}
		result := evt.Data().Query(path)
		if !result.Exists() {
			return false
		}
		return result.Value() == want
	}
}

// FilterAnd combines filters; all must pass.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(evt *Event) bool {
		for _, f := range filters {
			if !f(evt) {
				return false
			}
		}
		return true
	}
}

// FilterOr combines filters; at least one must pass.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(evt *Event) bool {
		for _, f := range filters {
			if f(evt) {
				return true
			}
		}
		return false
	}
}

// FilterNot negates a filter.
func FilterNot(filter FilterFunc) FilterFunc {
	return func(evt *Event) bool {
		return !filter(evt)
	}
}

package dispatch

import "testing"

func TestFilterByName(t *testing.T) {
	f := FilterByName("user.created")
	if !f(NewEvent("user.created", nil)) {
		t.Error("matching name rejected")
	}
	if f(NewEvent("user.deleted", nil)) {
		t.Error("non-matching name accepted")
	}
	if f(nil) {
		t.Error("nil event accepted")
	}
}

func TestFilterByNamePrefix(t *testing.T) {
	f := FilterByNamePrefix("user.")
	if !f(NewEvent("user.created", nil)) {
		t.Error("prefixed name rejected")
	}
	if f(NewEvent("order.created", nil)) {
		t.Error("unrelated name accepted")
	}
}

func TestFilterByKey(t *testing.T) {
	f := FilterByKey("id")
	if !f(NewEvent("ev", map[string]any{"id": 1})) {
		t.Error("event with key rejected")
	}
	if f(NewEvent("ev", nil)) {
		t.Error("event without key accepted")
	}
}

func TestFilterByData(t *testing.T) {
	evt := NewEvent("order", map[string]any{
		"customer": map[string]any{"tier": "gold"},
		"total":    10,
	})

	if !FilterByData("customer.tier", "gold")(evt) {
		t.Error("matching nested value rejected")
	}
	if FilterByData("customer.tier", "silver")(evt) {
		t.Error("non-matching value accepted")
	}
	// gjson canonicalizes numbers to float64.
	if !FilterByData("total", float64(10))(evt) {
		t.Error("matching numeric value rejected")
	}
	if FilterByData("missing.path", "x")(evt) {
		t.Error("missing path accepted")
	}
}

func TestFilterCombinators(t *testing.T) {
	evt := NewEvent("user.created", map[string]any{"id": 1})

	and := FilterAnd(FilterByNamePrefix("user."), FilterByKey("id"))
	if !and(evt) {
		t.Error("FilterAnd rejected event passing both")
	}
	if FilterAnd(FilterByNamePrefix("user."), FilterByKey("missing"))(evt) {
		t.Error("FilterAnd accepted event failing one")
	}

	or := FilterOr(FilterByName("nope"), FilterByKey("id"))
	if !or(evt) {
		t.Error("FilterOr rejected event passing one")
	}
	if FilterOr(FilterByName("nope"), FilterByKey("missing"))(evt) {
		t.Error("FilterOr accepted event failing both")
	}

	if FilterNot(FilterByKey("id"))(evt) {
		t.Error("FilterNot accepted event its inner filter passes")
	}
	if !FilterNot(FilterByKey("missing"))(evt) {
		t.Error("FilterNot rejected event its inner filter fails")
	}
}

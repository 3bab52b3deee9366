// Package model defines the core domain types shared across the pipeline.
package model

import "fmt"

// Reserved event keys written by the pipeline.
const (
	KeyTitle    = "title"
	KeyCategory = "event_category"
	KeyMeta     = "enrichment_meta"
)

// Event is a loosely-structured event record keyed by field name. Values are
// strings, arrays of strings, or absent/nil. The upstream scraper creates it;
// the pipeline mutates it in place.
type Event map[string]any

// Title returns the event title, or "" when absent.
func (e Event) Title() string {
	s, _ := e[KeyTitle].(string)
	return s
}

// Empty reports whether field is absent, nil, an empty string, or an empty
// array.
func (e Event) Empty(field string) bool {
	v, ok := e[field]
	if !ok || v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

// Strings returns field as a string slice. Scalars become a one-element
// slice; absent or nil fields return nil.
func (e Event) Strings(field string) []string {
	v, ok := e[field]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	}
	return []string{fmt.Sprintf("%v", v)}
}

// Category returns the event category and whether one is set. A key holding
// an explicit nil (a recorded abstention) reports false.
func (e Event) Category() (string, bool) {
	v, ok := e[KeyCategory]
	if !ok || v == nil {
		return "", false
	}
	label, ok := v.(string)
	return label, ok && label != ""
}

// SetCategory records label as the event category. An empty label records an
// explicit null, marking the event as deliberately uncategorized.
func (e Event) SetCategory(label string) {
	if label == "" {
		e[KeyCategory] = nil
		return
	}
	e[KeyCategory] = label
}

// Meta returns the enrichment metadata, or nil before the pipeline has run.
func (e Event) Meta() *EnrichmentMeta {
	m, _ := e[KeyMeta].(*EnrichmentMeta)
	return m
}

// SetMeta attaches enrichment metadata to the event.
func (e Event) SetMeta(m *EnrichmentMeta) {
	e[KeyMeta] = m
}

package models

import (
	"strings"
	"time"
)

// Signature identifies an event by content, not by position in the list.
// Carrier responses do not keep event order stable between lookups.
func (e TrackingEvent) Signature() string {
	parts := []string{
		strings.TrimSpace(e.Description),
		e.OccurredAt.UTC().Format(time.RFC3339),
		strings.TrimSpace(e.Location),
		deref(e.Detail),
		deref(e.UnitType),
		deref(e.Origin),
		deref(e.Destination),
	}
	return strings.Join(parts, "|")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// Package dedupe tracks competition observations that were already kept.
package dedupe

import (
	"context"
	"strings"
	"time"
)

// Key identifies one observation: the same athlete at the same meet on the
// same day is assumed to be a single result recorded more than once.
type Key struct {
	PrimaryKey string
	Date       time.Time
	MeetName   string
}

// NewKey builds a Key. The date is cut to its calendar day in UTC and the
// meet name is compared without case.
func NewKey(primaryKey string, date time.Time, meetName string) Key {
	y, m, d := date.Date()
	return Key{
		PrimaryKey: primaryKey,
		Date:       time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		MeetName:   strings.ToLower(meetName),
	}
}

// Deduper records seen observation keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already seen and records it if not.
	SeenAndRecord(ctx context.Context, key Key) bool
}

// inMemoryDeduper is a plain set with no eviction: a run must see every key
// of the table to stay idempotent. It is not safe for concurrent use.
type inMemoryDeduper struct {
	seen map[Key]struct{}
	hint int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[Key]struct{}, d.hint)
	return d
}

// SeenAndRecord checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key Key) bool {
	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

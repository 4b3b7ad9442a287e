package models

import "time"

// JournalEntry is the stored record of one pair outcome. It is written after a
// run completes and never read back to seed another run.
type JournalEntry struct {
	RunID          string
	First          string
	Second         string
	Method         string  // method of the resolved offset, empty if unresolved
	OffsetSec      float64 // resolved offset
	SanityExceeded bool
	Unresolved     bool
	Start1         float64
	Start2         float64
	DurationSec    float64
	Status         string // ok | skipped | failed
	Error          string
	CreatedAt      time.Time
}

package domain

import "time"

// LedgerEntry is the persisted record of an announcement already notified.
// Entries are created when a link is first seen and have their audience
// overwritten in place when the same link reappears reclassified; this core
// never deletes them.
type LedgerEntry struct {
	ID        int64
	Link      string
	Audience  Audience
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recipient is a registered notification target. ChannelToken is an opaque
// secret issued by the channel provider and revocable by it at any time.
type Recipient struct {
	ID           int64
	ChannelToken string
	Audience     Audience
	Cadence      Cadence
}

// Window is a half-open [Start, End) time range used for same-day and
// since-last-run filtering. Computing it once per run keeps midnight
// boundaries out of the components.
type Window struct {
	Start time.Time
	End   time.Time
}

// DayOf returns the window covering the calendar day of t in t's location.
func DayOf(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

package domain

// AudienceChange pairs an announcement's stale ledger record with its fresh
// listing, observed when the same link reappears with a new classification.
type AudienceChange struct {
	Previous LedgerEntry
	Current  Announcement
}

// ChangeSet is the Change Detector's output for one run. An announcement
// appears in at most one of FreshlyNew / AudienceChanged; an item identical to
// its ledger counterpart appears in neither.
type ChangeSet struct {
	FreshlyNew      []Announcement
	AudienceChanged []AudienceChange
}

// Empty reports whether the run produced nothing to notify about.
func (c ChangeSet) Empty() bool {
	return len(c.FreshlyNew) == 0 && len(c.AudienceChanged) == 0
}

// ChangedEntryIDs lists the ledger ids whose audience was overwritten.
func (c ChangeSet) ChangedEntryIDs() []int64 {
	ids := make([]int64, 0, len(c.AudienceChanged))
	for _, change := range c.AudienceChanged {
		ids = append(ids, change.Previous.ID)
	}
	return ids
}

// Messages maps each audience class to its composed message body. A missing
// key means no relevant change exists for that audience this run.
type Messages map[Audience]string

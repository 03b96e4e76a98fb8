package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"CampusNotify/internal/domain"
	"CampusNotify/internal/ports"
)

// Detector compares the current listing against the ledger rows recorded in
// the detection window and classifies each item as new, audience-changed, or
// unchanged. The ledger writes implied by the classification happen as part
// of producing the ChangeSet, so callers never observe one without the other.
type Detector struct {
	ledger ports.Ledger
	logger *slog.Logger
}

// NewDetector wires the ledger the detector reads and mutates.
func NewDetector(ledger ports.Ledger, logger *slog.Logger) *Detector {
	return &Detector{ledger: ledger, logger: logger}
}

// Detect produces the ChangeSet for one run. Any ledger error aborts the run
// wholesale; no partial ChangeSet is returned. Items present only in the
// ledger and absent from the listing are left alone: the source page is
// append-only in practice, so disappearance is not a change.
func (d *Detector) Detect(ctx context.Context, listing []domain.Announcement, w domain.Window) (domain.ChangeSet, error) {
	entries, err := d.ledger.FindEntriesByWindow(ctx, w)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("load notified entries: %w", err)
	}

	byLink := make(map[string]domain.LedgerEntry, len(entries))
	for _, entry := range entries {
		byLink[entry.Link] = entry
	}

	var changes domain.ChangeSet
	for _, item := range listing {
		if item.Link == "" {
			d.debug("skipping malformed entry without link", "title", item.Title)
			continue
		}

		entry, notified := byLink[item.Link]
		switch {
		case !notified:
			inserted, err := d.ledger.InsertEntry(ctx, item.Link, item.Audience)
			if err != nil {
				return domain.ChangeSet{}, fmt.Errorf("insert entry %s: %w", item.Link, err)
			}
			byLink[item.Link] = inserted
			changes.FreshlyNew = append(changes.FreshlyNew, item)
		case entry.Audience != item.Audience:
			if err := d.ledger.UpdateEntryAudience(ctx, entry.ID, item.Audience); err != nil {
				return domain.ChangeSet{}, fmt.Errorf("update entry %d: %w", entry.ID, err)
			}
			changes.AudienceChanged = append(changes.AudienceChanged, domain.AudienceChange{
				Previous: entry,
				Current:  item,
			})
		default:
			// Already notified with the same classification.
		}
	}

	d.debug("detection finished",
		"listed", len(listing),
		"new", len(changes.FreshlyNew),
		"reclassified", len(changes.AudienceChanged))

	return changes, nil
}

func (d *Detector) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

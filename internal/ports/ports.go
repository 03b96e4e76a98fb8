package ports

import (
	"context"
	"errors"
	"time"

	"CampusNotify/internal/domain"
)

// AnnouncementSource pulls the currently-listed announcements from the
// bulletin page. Retrieval and parsing failures are the adapter's own; the
// engine treats them as an empty listing.
type AnnouncementSource interface {
	FetchListing(ctx context.Context, day time.Time) ([]domain.Announcement, error)
}

// Ledger is the persisted record of notified announcements and registered
// recipients, shared by the Change Detector and the Dispatcher.
type Ledger interface {
	FindEntriesByWindow(ctx context.Context, w domain.Window) ([]domain.LedgerEntry, error)
	InsertEntry(ctx context.Context, link string, audience domain.Audience) (domain.LedgerEntry, error)
	UpdateEntryAudience(ctx context.Context, id int64, audience domain.Audience) error
	FindRecipientsByCadence(ctx context.Context, cadence domain.Cadence) ([]domain.Recipient, error)
	DeleteRecipient(ctx context.Context, id int64) error
}

// Channel failure classes the Dispatcher reacts to. Any other error from
// Send is treated as transient: logged, recipient retained, run continues.
var (
	ErrInvalidToken = errors.New("channel token invalid or revoked")
	ErrNotJoined    = errors.New("sending identity not joined to target group")
)

// DeliveryChannel is the outbound token-addressed push API.
type DeliveryChannel interface {
	Send(ctx context.Context, token, message string) error
}

// SidePoster publishes per-item posts to the optional broadcast side channel.
type SidePoster interface {
	Post(ctx context.Context, post string) error
}

// Scheduler drives repeated engine runs for the schedule command.
type Scheduler interface {
	Schedule(spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

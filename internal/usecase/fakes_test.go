package usecase

import (
	"context"
	"sync"
	"time"

	"CampusNotify/internal/domain"
)

// fakeLedger is an in-memory ports.Ledger for usecase tests.
type fakeLedger struct {
	mu         sync.Mutex
	entries    []domain.LedgerEntry
	recipients []domain.Recipient
	nextID     int64
	clock      func() time.Time

	entriesErr    error
	insertErr     error
	updateErr     error
	recipientsErr error
	deleteErr     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{nextID: 1, clock: time.Now}
}

func (f *fakeLedger) seedEntry(link string, audience domain.Audience, at time.Time) domain.LedgerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := domain.LedgerEntry{ID: f.nextID, Link: link, Audience: audience, CreatedAt: at, UpdatedAt: at}
	f.nextID++
	f.entries = append(f.entries, entry)
	return entry
}

func (f *fakeLedger) seedRecipient(token string, audience domain.Audience, cadence domain.Cadence) domain.Recipient {
	f.mu.Lock()
	defer f.mu.Unlock()
	recipient := domain.Recipient{ID: f.nextID, ChannelToken: token, Audience: audience, Cadence: cadence}
	f.nextID++
	f.recipients = append(f.recipients, recipient)
	return recipient
}

func (f *fakeLedger) entryByLink(link string) (domain.LedgerEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.Link == link {
			return entry, true
		}
	}
	return domain.LedgerEntry{}, false
}

func (f *fakeLedger) FindEntriesByWindow(_ context.Context, w domain.Window) ([]domain.LedgerEntry, error) {
	if f.entriesErr != nil {
		return nil, f.entriesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LedgerEntry
	for _, entry := range f.entries {
		if w.Contains(entry.CreatedAt) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeLedger) InsertEntry(_ context.Context, link string, audience domain.Audience) (domain.LedgerEntry, error) {
	if f.insertErr != nil {
		return domain.LedgerEntry{}, f.insertErr
	}
	return f.seedEntry(link, audience, f.clock()), nil
}

func (f *fakeLedger) UpdateEntryAudience(_ context.Context, id int64, audience domain.Audience) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Audience = audience
			f.entries[i].UpdatedAt = f.clock()
			return nil
		}
	}
	return nil
}

func (f *fakeLedger) FindRecipientsByCadence(_ context.Context, cadence domain.Cadence) ([]domain.Recipient, error) {
	if f.recipientsErr != nil {
		return nil, f.recipientsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Recipient
	for _, recipient := range f.recipients {
		if recipient.Cadence == cadence {
			out = append(out, recipient)
		}
	}
	return out, nil
}

func (f *fakeLedger) DeleteRecipient(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.recipients[:0]
	for _, recipient := range f.recipients {
		if recipient.ID != id {
			kept = append(kept, recipient)
		}
	}
	f.recipients = kept
	return nil
}

// channelFunc adapts a function to ports.DeliveryChannel.
type channelFunc func(ctx context.Context, token, message string) error

func (f channelFunc) Send(ctx context.Context, token, message string) error {
	return f(ctx, token, message)
}

// sendRecorder tracks which tokens a channel stub was invoked with.
type sendRecorder struct {
	mu   sync.Mutex
	sent map[string][]string
}

func newSendRecorder() *sendRecorder {
	return &sendRecorder{sent: map[string][]string{}}
}

func (r *sendRecorder) record(token, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[token] = append(r.sent[token], message)
}

func (r *sendRecorder) messages(token string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[token]
}

func (r *sendRecorder) tokens() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CampusNotify/internal/domain"
	"CampusNotify/internal/ports"
)

const (
	entriesTable    = "announcements"
	recipientsTable = "recipients"
)

// SQLLedger persists notified announcements and registered recipients.
type SQLLedger struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.Ledger = (*SQLLedger)(nil)

// NewSQLLedger wires a sql.DB with the placeholder format of its driver.
func NewSQLLedger(db *sql.DB, driver string) *SQLLedger {
	return &SQLLedger{
		db:      db,
		driver:  normalizeDriver(driver),
		builder: sq.StatementBuilder.PlaceholderFormat(Placeholder(driver)),
		now:     time.Now,
	}
}

// Migrate creates the ledger tables when they do not exist yet.
func (l *SQLLedger) Migrate(ctx context.Context) error {
	for _, ddl := range l.schema() {
		if _, err := l.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (l *SQLLedger) schema() []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if l.driver == "postgres" {
		id = "BIGSERIAL PRIMARY KEY"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			link TEXT NOT NULL UNIQUE,
			audience INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, entriesTable, id),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			channel_token TEXT NOT NULL,
			audience INTEGER NOT NULL,
			cadence TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`, recipientsTable, id),
	}
}

// FindEntriesByWindow returns the entries recorded inside [w.Start, w.End).
func (l *SQLLedger) FindEntriesByWindow(ctx context.Context, w domain.Window) ([]domain.LedgerEntry, error) {
	query, args, err := l.builder.
		Select("id", "link", "audience", "created_at", "updated_at").
		From(entriesTable).
		Where(sq.GtOrEq{"created_at": w.Start}).
		Where(sq.Lt{"created_at": w.End}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entries query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			entry    domain.LedgerEntry
			audience int
		)
		if err := rows.Scan(&entry.ID, &entry.Link, &audience, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Audience = domain.Audience(audience)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// InsertEntry records a newly observed announcement link.
func (l *SQLLedger) InsertEntry(ctx context.Context, link string, audience domain.Audience) (domain.LedgerEntry, error) {
	now := l.now()
	query, args, err := l.builder.
		Insert(entriesTable).
		Columns("link", "audience", "created_at", "updated_at").
		Values(link, int(audience), now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("build entry insert: %w", err)
	}

	entry := domain.LedgerEntry{Link: link, Audience: audience, CreatedAt: now, UpdatedAt: now}
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&entry.ID); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("insert entry: %w", err)
	}

	return entry, nil
}

// UpdateEntryAudience overwrites the stored classification of an entry.
func (l *SQLLedger) UpdateEntryAudience(ctx context.Context, id int64, audience domain.Audience) error {
	query, args, err := l.builder.
		Update(entriesTable).
		Set("audience", int(audience)).
		Set("updated_at", l.now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build entry update: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update entry %d: %w", id, err)
	}
	return nil
}

// FindRecipientsByCadence snapshots the recipients registered for a run mode.
func (l *SQLLedger) FindRecipientsByCadence(ctx context.Context, cadence domain.Cadence) ([]domain.Recipient, error) {
	query, args, err := l.builder.
		Select("id", "channel_token", "audience").
		From(recipientsTable).
		Where(sq.Eq{"cadence": string(cadence)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recipients query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var (
			recipient domain.Recipient
			audience  int
		)
		if err := rows.Scan(&recipient.ID, &recipient.ChannelToken, &audience); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipient.Audience = domain.Audience(audience)
		recipient.Cadence = cadence
		recipients = append(recipients, recipient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}

	return recipients, nil
}

// DeleteRecipient removes a recipient whose channel is terminally dead.
// Deletion is idempotent; deleting an already-deleted row is not an error.
func (l *SQLLedger) DeleteRecipient(ctx context.Context, id int64) error {
	query, args, err := l.builder.
		Delete(recipientsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build recipient delete: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete recipient %d: %w", id, err)
	}
	return nil
}

// AddRecipient registers a recipient; the web front end owns registration in
// production, this keeps local setups and tests self-contained.
func (l *SQLLedger) AddRecipient(ctx context.Context, token string, audience domain.Audience, cadence domain.Cadence) (domain.Recipient, error) {
	query, args, err := l.builder.
		Insert(recipientsTable).
		Columns("channel_token", "audience", "cadence", "created_at").
		Values(token, int(audience), string(cadence), l.now()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.Recipient{}, fmt.Errorf("build recipient insert: %w", err)
	}

	recipient := domain.Recipient{ChannelToken: token, Audience: audience, Cadence: cadence}
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&recipient.ID); err != nil {
		return domain.Recipient{}, fmt.Errorf("insert recipient: %w", err)
	}

	return recipient, nil
}

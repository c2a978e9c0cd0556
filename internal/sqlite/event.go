package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
)

// EventRepository implements event.Repository for SQLite
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Log appends an event and assigns its ID
func (r *EventRepository) Log(ctx context.Context, evt *event.Event) error {
	createdAt := evt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO rent_events (
			type, rent_id, asset_ref, token_ref, asset_id,
			owner, rate, expires_at, tenant, due_time, uri, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		string(evt.Type),
		evt.RentID,
		evt.AssetRef,
		evt.TokenRef,
		int64(evt.AssetID),
		evt.Owner,
		evt.Rate,
		nullUnix(evt.ExpiresAt),
		evt.Tenant,
		nullUnix(evt.DueTime),
		evt.URI,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		evt.ID = id
	}
	evt.CreatedAt = createdAt

	return nil
}

// List returns events matching the given filters in the order they were logged
func (r *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	query := `
		SELECT
			id, type, rent_id, asset_ref, token_ref, asset_id,
			owner, rate, expires_at, tenant, due_time, uri, created_at
		FROM rent_events
	`

	var (
		conditions []string
		args       []any
	)
	if opts.AssetRef != "" {
		conditions = append(conditions, "asset_ref = ?")
		args = append(args, opts.AssetRef)
	}
	if opts.AssetID != nil {
		conditions = append(conditions, "asset_id = ?")
		args = append(args, int64(*opts.AssetID))
	}
	if opts.RentID != "" {
		conditions = append(conditions, "rent_id = ?")
		args = append(args, opts.RentID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, string(*opts.Type))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id ASC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			evt                event.Event
			typ                string
			assetID            int64
			expiresAt, dueTime sql.NullInt64
		)
		if err := rows.Scan(
			&evt.ID,
			&typ,
			&evt.RentID,
			&evt.AssetRef,
			&evt.TokenRef,
			&assetID,
			&evt.Owner,
			&evt.Rate,
			&expiresAt,
			&evt.Tenant,
			&dueTime,
			&evt.URI,
			&evt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Type = event.Type(typ)
		evt.AssetID = uint64(assetID)
		evt.ExpiresAt = timeFromNull(expiresAt)
		evt.DueTime = timeFromNull(dueTime)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
	"github.com/leomorozovskii/erc721-rent/internal/repository"
)

// RentRepository implements rent.Repository for SQLite
type RentRepository struct {
	db *DB
}

// NewRentRepository creates a new RentRepository
func NewRentRepository(db *DB) *RentRepository {
	return &RentRepository{db: db}
}

const rentColumns = `
	asset_ref, asset_id, id, token_ref, owner, tenant, rate,
	duration_seconds, expires_at, due_time, created_at
`

// Get retrieves the rent occupying key
func (r *RentRepository) Get(ctx context.Context, key rent.Key) (*rent.Rent, error) {
	query := `SELECT ` + rentColumns + ` FROM rents WHERE asset_ref = ? AND asset_id = ?`

	rec, err := scanRent(r.db.QueryRowContext(ctx, query, string(key.AssetRef), int64(key.AssetID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rent: %w", err)
	}
	return rec, nil
}

// Save inserts the rent or overwrites whatever occupies its key
func (r *RentRepository) Save(ctx context.Context, rec *rent.Rent) error {
	if rec.Rate == nil {
		return fmt.Errorf("rent %s has no rate: %w", rec.Key(), repository.ErrInvalidInput)
	}

	query := `
		INSERT INTO rents (` + rentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_ref, asset_id) DO UPDATE SET
			id = excluded.id,
			token_ref = excluded.token_ref,
			owner = excluded.owner,
			tenant = excluded.tenant,
			rate = excluded.rate,
			duration_seconds = excluded.duration_seconds,
			expires_at = excluded.expires_at,
			due_time = excluded.due_time,
			created_at = excluded.created_at
	`

	_, err := r.db.ExecContext(ctx, query,
		string(rec.AssetRef),
		int64(rec.AssetID),
		rec.ID,
		string(rec.TokenRef),
		string(rec.Owner),
		string(rec.Tenant),
		rec.Rate.String(),
		int64(rec.Duration/time.Second),
		unixOrZero(rec.ExpiresAt),
		unixOrZero(rec.DueTime),
		unixOrZero(rec.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("rent id %s: %w", rec.ID, repository.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to save rent: %w", err)
	}
	return nil
}

// Delete clears the slot at key
func (r *RentRepository) Delete(ctx context.Context, key rent.Key) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM rents WHERE asset_ref = ? AND asset_id = ?`,
		string(key.AssetRef), int64(key.AssetID))
	if err != nil {
		return fmt.Errorf("failed to delete rent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete rent: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns rents matching the given filters, newest first
func (r *RentRepository) List(ctx context.Context, opts rent.ListOptions) ([]rent.Rent, error) {
	query := `SELECT ` + rentColumns + ` FROM rents`

	var (
		conditions []string
		args       []any
	)
	if opts.Owner != rent.ZeroAddress {
		conditions = append(conditions, "owner = ?")
		args = append(args, string(opts.Owner))
	}
	if opts.Tenant != rent.ZeroAddress {
		conditions = append(conditions, "tenant = ?")
		args = append(args, string(opts.Tenant))
	}
	if opts.AssetRef != rent.ZeroAddress {
		conditions = append(conditions, "asset_ref = ?")
		args = append(args, string(opts.AssetRef))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, asset_ref, asset_id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rents: %w", err)
	}
	defer rows.Close()

	var rents []rent.Rent
	for rows.Next() {
		rec, err := scanRent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rent: %w", err)
		}
		rents = append(rents, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rent rows: %w", err)
	}

	return rents, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRent(row rowScanner) (*rent.Rent, error) {
	var (
		rec                 rent.Rent
		assetRef, tokenRef  string
		owner, tenant, rate string
		assetID, duration   int64
		expiresAt, dueTime  int64
		createdAt           int64
	)
	if err := row.Scan(
		&assetRef,
		&assetID,
		&rec.ID,
		&tokenRef,
		&owner,
		&tenant,
		&rate,
		&duration,
		&expiresAt,
		&dueTime,
		&createdAt,
	); err != nil {
		return nil, err
	}

	amount, ok := new(big.Int).SetString(rate, 10)
	if !ok {
		return nil, fmt.Errorf("malformed rate %q", rate)
	}

	rec.AssetRef = rent.Address(assetRef)
	rec.AssetID = rent.TokenID(uint64(assetID))
	rec.TokenRef = rent.Address(tokenRef)
	rec.Owner = rent.Address(owner)
	rec.Tenant = rent.Address(tenant)
	rec.Rate = amount
	rec.Duration = time.Duration(duration) * time.Second
	rec.ExpiresAt = fromUnix(expiresAt)
	rec.DueTime = fromUnix(dueTime)
	rec.CreatedAt = fromUnix(createdAt)
	return &rec, nil
}

// unixOrZero stores unset times as 0.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// paginate appends LIMIT and OFFSET. SQLite only accepts OFFSET after a LIMIT.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 && offset <= 0 {
		return query, args
	}
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

package rent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
	"github.com/leomorozovskii/erc721-rent/internal/repository"
)

// Options configures the registry.
type Options struct {
	// Escrow is the registry's own identity; it holds custody of signed assets.
	Escrow        Address
	MinDuration   time.Duration
	MinExpiryLead time.Duration
}

// Service is the rent registry. It owns the rent state machine and
// orchestrates custody, settlement and fingerprint checks for every transition.
type Service struct {
	rents      Repository
	contracts  Contracts
	notifier   Notifier
	clock      Clock
	opts       Options
	custody    Custody
	settlement Settlement
	verifier   Verifier
	locks      *keyLocks
	logger     *slog.Logger
}

// NewService creates a new rent registry.
func NewService(
	rents Repository,
	contracts Contracts,
	notifier Notifier,
	clock Clock,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MinDuration == 0 {
		opts.MinDuration = DefaultMinDuration
	}
	if opts.MinExpiryLead == 0 {
		opts.MinExpiryLead = DefaultMinExpiryLead
	}
	return &Service{
		rents:      rents,
		contracts:  contracts,
		notifier:   notifier,
		clock:      clock,
		opts:       opts,
		settlement: Settlement{Spender: opts.Escrow},
		locks:      newKeyLocks(),
		logger:     logger,
	}
}

// Escrow returns the identity holding custody of signed assets.
func (s *Service) Escrow() Address {
	return s.opts.Escrow
}

// CreateRent lists an asset for rent. An unsigned offer already occupying the
// key is replaced.
func (s *Service) CreateRent(ctx context.Context, req CreateRequest) (*Rent, error) {
	const op = "create rent"
	if req.Caller == ZeroAddress {
		return nil, fail(op, KindUnauthorized, "missing caller")
	}

	asset, err := s.contracts.NonFungible(ctx, req.AssetRef)
	if err != nil {
		return nil, wrapKind(op, KindNotAContract, err)
	}
	if _, err := s.contracts.Fungible(ctx, req.TokenRef); err != nil {
		return nil, wrapKind(op, KindNotAContract, err)
	}

	now := s.now()
	expiresAt := blockTime(req.ExpiresAt)
	if err := ValidateCreateInput(req.Rate, req.Duration, expiresAt, now, s.opts); err != nil {
		return nil, err
	}

	key := Key{AssetRef: req.AssetRef, AssetID: req.AssetID}
	unlock := s.locks.lock(key)
	defer unlock()

	existing, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Signed() {
		return nil, fail(op, KindAlreadySigned, "asset %s is rented to %q", key, existing.Tenant)
	}

	holder, err := asset.OwnerOf(ctx, req.AssetID)
	if err != nil {
		return nil, wrapKind(op, KindUnauthorized, err)
	}
	if holder != req.Caller {
		return nil, fail(op, KindUnauthorized, "%q does not own asset %s", req.Caller, key)
	}
	approved, err := asset.IsApprovedForAll(ctx, req.Caller, s.opts.Escrow)
	if err != nil {
		return nil, wrapKind(op, KindUnauthorized, err)
	}
	if !approved {
		return nil, fail(op, KindUnauthorized, "escrow is not approved to move assets of %q", req.Caller)
	}

	rec := &Rent{
		ID:        uuid.NewString(),
		AssetRef:  req.AssetRef,
		TokenRef:  req.TokenRef,
		AssetID:   req.AssetID,
		Owner:     req.Caller,
		Rate:      new(big.Int).Set(req.Rate),
		Duration:  req.Duration,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.rents.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing rent: %w", err)
	}
	if existing != nil {
		s.logger.Info("replaced unsigned rent", "key", key.String(), "previous_id", existing.ID, "rent_id", rec.ID)
	}

	evt := newEvent(event.TypeRentCreated, rec, now)
	evt.Owner = string(rec.Owner)
	evt.Rate = rec.Rate.String()
	evt.ExpiresAt = &rec.ExpiresAt
	s.notify(ctx, evt)

	return rec, nil
}

// SignRent activates an offer: the caller pays the rate to the owner and the
// asset moves into escrow. Either both transfers happen and the record is
// updated, or nothing changes.
func (s *Service) SignRent(ctx context.Context, req SignRequest) (*Rent, error) {
	const op = "sign rent"
	key := Key{AssetRef: req.AssetRef, AssetID: req.AssetID}
	unlock := s.locks.lock(key)
	defer unlock()

	rec, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Signed() {
		return nil, fail(op, KindNotFound, "no open offer for %s", key)
	}
	if req.Caller == ZeroAddress || req.Caller == rec.Owner || req.Caller == s.opts.Escrow {
		return nil, fail(op, KindUnauthorized, "%q cannot sign this rent", req.Caller)
	}

	now := s.now()
	if !now.Before(rec.ExpiresAt) {
		return nil, fail(op, KindExpired, "offer expired at %s", rec.ExpiresAt.Format(time.RFC3339))
	}
	if req.ExpectedRate == nil || req.ExpectedRate.Cmp(rec.Rate) != 0 {
		return nil, fail(op, KindRateMismatch, "rate is %s", rec.Rate)
	}

	asset, err := s.contracts.NonFungible(ctx, rec.AssetRef)
	if err != nil {
		return nil, wrapKind(op, KindNotAContract, err)
	}
	token, err := s.contracts.Fungible(ctx, rec.TokenRef)
	if err != nil {
		return nil, wrapKind(op, KindNotAContract, err)
	}

	match, err := s.verifier.Verify(ctx, asset, rec.AssetID, req.Fingerprint)
	if err != nil {
		return nil, wrapKind(op, KindNotFound, err)
	}
	if !match {
		return nil, fail(op, KindFingerprintMismatch, "asset %s changed", key)
	}

	if err := s.custody.Check(ctx, asset, rec.AssetID, rec.Owner, s.opts.Escrow); err != nil {
		return nil, err
	}
	if err := s.settlement.Check(ctx, token, req.Caller, rec.Rate); err != nil {
		return nil, err
	}

	tx := s.begin()
	if err := s.custody.Transfer(ctx, asset, rec.AssetID, rec.Owner, s.opts.Escrow, s.opts.Escrow); err != nil {
		return nil, err
	}
	tx.onRollback("return asset to owner", func(ctx context.Context) error {
		return s.custody.Transfer(ctx, asset, rec.AssetID, s.opts.Escrow, rec.Owner, s.opts.Escrow)
	})

	signed := *rec
	signed.Tenant = req.Caller
	signed.DueTime = now.Add(rec.Duration)
	if err := s.rents.Save(ctx, &signed); err != nil {
		tx.rollback(ctx)
		return nil, fmt.Errorf("storing signed rent: %w", err)
	}
	tx.onRollback("restore unsigned rent", func(ctx context.Context) error {
		return s.rents.Save(ctx, rec)
	})

	// Payment goes last: it is the one effect the registry cannot reverse.
	if err := s.settlement.Settle(ctx, token, req.Caller, rec.Owner, rec.Rate); err != nil {
		tx.rollback(ctx)
		return nil, err
	}
	tx.commit()

	evt := newEvent(event.TypeRentSigned, &signed, now)
	evt.Tenant = string(signed.Tenant)
	evt.DueTime = &signed.DueTime
	s.notify(ctx, evt)

	return &signed, nil
}

// FinishRent returns custody to the owner once the rental period has elapsed
// and clears the record.
func (s *Service) FinishRent(ctx context.Context, key Key, caller Address) error {
	const op = "finish rent"
	unlock := s.locks.lock(key)
	defer unlock()

	rec, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if rec == nil || !rec.Signed() {
		return fail(op, KindNotFound, "no signed rent for %s", key)
	}
	if caller != rec.Owner {
		return fail(op, KindUnauthorized, "%q is not the owner", caller)
	}
	now := s.now()
	if now.Before(rec.DueTime) {
		return fail(op, KindNotYetDue, "rent is due at %s", rec.DueTime.Format(time.RFC3339))
	}

	asset, err := s.contracts.NonFungible(ctx, rec.AssetRef)
	if err != nil {
		return wrapKind(op, KindNotAContract, err)
	}

	tx := s.begin()
	if err := s.custody.Transfer(ctx, asset, rec.AssetID, s.opts.Escrow, rec.Owner, s.opts.Escrow); err != nil {
		return err
	}
	tx.onRollback("return asset to escrow", func(ctx context.Context) error {
		return s.custody.Transfer(ctx, asset, rec.AssetID, rec.Owner, s.opts.Escrow, s.opts.Escrow)
	})

	if err := s.rents.Delete(ctx, key); err != nil {
		tx.rollback(ctx)
		return fmt.Errorf("clearing rent: %w", err)
	}
	tx.commit()

	s.notify(ctx, newEvent(event.TypeRentFinished, rec, now))
	return nil
}

// CancelRent withdraws an unsigned offer.
func (s *Service) CancelRent(ctx context.Context, key Key, caller Address) error {
	const op = "cancel rent"
	unlock := s.locks.lock(key)
	defer unlock()

	rec, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if rec == nil {
		return fail(op, KindNotFound, "no rent for %s", key)
	}
	if caller != rec.Owner {
		return fail(op, KindUnauthorized, "%q is not the owner", caller)
	}
	if rec.Signed() {
		return fail(op, KindAlreadySigned, "rent is held by %q", rec.Tenant)
	}

	if err := s.rents.Delete(ctx, key); err != nil {
		return fmt.Errorf("clearing rent: %w", err)
	}

	s.notify(ctx, newEvent(event.TypeRentCancelled, rec, s.now()))
	return nil
}

// UpdateToken lets the current tenant change the asset's metadata URI during
// the rental period.
func (s *Service) UpdateToken(ctx context.Context, req UpdateRequest) error {
	const op = "update token"
	key := Key{AssetRef: req.AssetRef, AssetID: req.AssetID}
	unlock := s.locks.lock(key)
	defer unlock()

	rec, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if rec == nil {
		return fail(op, KindNotFound, "no rent for %s", key)
	}
	now := s.now()
	if !rec.Signed() || !now.Before(rec.DueTime) {
		return fail(op, KindNotActive, "rent for %s is not active", key)
	}
	if req.Caller != rec.Tenant {
		return fail(op, KindUnauthorized, "%q is not the tenant", req.Caller)
	}

	asset, err := s.contracts.NonFungible(ctx, rec.AssetRef)
	if err != nil {
		return wrapKind(op, KindNotAContract, err)
	}
	writer, ok := asset.(MetadataWriter)
	if !ok {
		return fail(op, KindNotAContract, "%q does not support metadata updates", rec.AssetRef)
	}
	if err := writer.SetTokenURI(ctx, s.opts.Escrow, rec.AssetID, req.URI); err != nil {
		return wrapKind(op, KindTransferRejected, err)
	}

	evt := newEvent(event.TypeTokenUpdated, rec, now)
	evt.URI = req.URI
	s.notify(ctx, evt)
	return nil
}

// GetRent returns the rent for key, or the zero Rent when the slot is empty.
func (s *Service) GetRent(ctx context.Context, key Key) (Rent, error) {
	rec, err := s.load(ctx, key)
	if err != nil || rec == nil {
		return Rent{}, err
	}
	return *rec, nil
}

// ListRents lists stored rents.
func (s *Service) ListRents(ctx context.Context, opts ListOptions) ([]Rent, error) {
	return s.rents.List(ctx, opts)
}

// Fingerprint reads the live fingerprint of a composable asset.
func (s *Service) Fingerprint(ctx context.Context, key Key) ([]byte, error) {
	const op = "fingerprint"
	asset, err := s.contracts.NonFungible(ctx, key.AssetRef)
	if err != nil {
		return nil, wrapKind(op, KindNotAContract, err)
	}
	fp, ok := asset.(Fingerprinter)
	if !ok {
		return nil, fail(op, KindNotAContract, "%q is not composable", key.AssetRef)
	}
	value, err := fp.Fingerprint(ctx, key.AssetID)
	if err != nil {
		return nil, wrapKind(op, KindNotFound, err)
	}
	return value, nil
}

func (s *Service) load(ctx context.Context, key Key) (*Rent, error) {
	rec, err := s.rents.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading rent %s: %w", key, err)
	}
	return rec, nil
}

func (s *Service) begin() *txn {
	return &txn{logger: s.logger}
}

// now reads the clock at ledger granularity.
func (s *Service) now() time.Time {
	return blockTime(s.clock.Now())
}

func (s *Service) notify(ctx context.Context, evt *event.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, evt); err != nil {
		s.logger.Warn("rent event not delivered", "type", evt.Type, "rent_id", evt.RentID, "error", err)
	}
}

func newEvent(typ event.Type, r *Rent, at time.Time) *event.Event {
	return &event.Event{
		Type:      typ,
		RentID:    r.ID,
		AssetRef:  string(r.AssetRef),
		TokenRef:  string(r.TokenRef),
		AssetID:   uint64(r.AssetID),
		CreatedAt: at,
	}
}

// blockTime truncates t to whole seconds in UTC.
func blockTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0).UTC()
}

package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service records rent events and serves the event log.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new event service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Notify persists an event, stamping the current time if missing.
func (s *Service) Notify(ctx context.Context, evt *Event) error {
	if evt == nil || evt.Type == "" || evt.AssetRef == "" {
		return ErrInvalidInput
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, evt); err != nil {
		return fmt.Errorf("logging event: %w", err)
	}
	s.logger.Info("rent event",
		"type", evt.Type,
		"rent_id", evt.RentID,
		"asset_ref", evt.AssetRef,
		"asset_id", evt.AssetID,
		"token_ref", evt.TokenRef,
	)
	return nil
}

// List returns events matching opts in the order they were logged.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	return s.repo.List(ctx, opts)
}

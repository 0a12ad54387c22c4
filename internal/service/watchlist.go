package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/storage"
)

const maxLabelLength = 100

// AddWatchlistItem stores a followed direction for userID. target may be nil.
func (s *Service) AddWatchlistItem(ctx context.Context, userID int64, label string, direction storage.Direction, target *decimal.Decimal) (storage.WatchlistItem, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return storage.WatchlistItem{}, invalid("label is required")
	}
	if len(label) > maxLabelLength {
		return storage.WatchlistItem{}, invalid("label must be at most %d characters", maxLabelLength)
	}
	if _, err := storage.ParseDirection(string(direction)); err != nil {
		return storage.WatchlistItem{}, invalid("%v", err)
	}
	if target != nil && !target.IsPositive() {
		return storage.WatchlistItem{}, invalid("target_rate must be positive")
	}

	item, err := s.store.InsertWatchlistItem(ctx, storage.WatchlistItem{
		UserID:     userID,
		Label:      label,
		Direction:  direction,
		TargetRate: target,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return storage.WatchlistItem{}, fmt.Errorf("insert watchlist item: %w", err)
	}
	s.logger.Info().Int64("item_id", item.ID).Int64("user_id", userID).Msg("watchlist item added")
	return item, nil
}

// ListWatchlist returns userID's watchlist, newest first.
func (s *Service) ListWatchlist(ctx context.Context, userID int64) ([]storage.WatchlistItem, error) {
	return s.store.ListWatchlist(ctx, userID)
}

// RemoveWatchlistItem deletes an item owned by the actor.
func (s *Service) RemoveWatchlistItem(ctx context.Context, actor Actor, id int64) error {
	item, err := s.store.GetWatchlistItem(ctx, id)
	if err != nil {
		return err
	}
	if item.UserID != actor.UserID {
		return ErrForbidden
	}
	if err := s.store.DeleteWatchlistItem(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete watchlist item: %w", err)
	}
	return nil
}

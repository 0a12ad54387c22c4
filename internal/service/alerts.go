package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/alerting"
	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// CreateAlert stores a threshold alert owned by userID.
func (s *Service) CreateAlert(ctx context.Context, userID int64, direction storage.Direction, threshold decimal.Decimal, comparison storage.Comparison) (storage.Alert, error) {
	if !threshold.IsPositive() {
		return storage.Alert{}, invalid("threshold must be greater than zero")
	}
	if _, err := storage.ParseDirection(string(direction)); err != nil {
		return storage.Alert{}, invalid("%v", err)
	}
	if _, err := storage.ParseComparison(string(comparison)); err != nil {
		return storage.Alert{}, invalid("%v", err)
	}

	alert, err := s.store.InsertAlert(ctx, storage.Alert{
		UserID:     userID,
		Direction:  direction,
		Threshold:  threshold,
		Comparison: comparison,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return storage.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	s.logger.Info().Int64("alert_id", alert.ID).Int64("user_id", userID).Msg("alert created")
	return alert, nil
}

// ListAlerts returns the alerts owned by userID, newest first.
func (s *Service) ListAlerts(ctx context.Context, userID int64) ([]storage.Alert, error) {
	return s.store.ListAlerts(ctx, storage.AlertFilter{UserID: &userID})
}

// DeleteAlert removes an alert. Only the owner or an administrator may.
func (s *Service) DeleteAlert(ctx context.Context, actor Actor, id int64) error {
	alert, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if alert.UserID != actor.UserID && !actor.Admin {
		return ErrForbidden
	}
	if err := s.store.DeleteAlert(ctx, id); err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	s.logger.Info().Int64("alert_id", id).Int64("actor", actor.UserID).Bool("admin", actor.Admin).Msg("alert deleted")
	return nil
}

// CheckAlerts evaluates the alerts of userID without writing notifications.
func (s *Service) CheckAlerts(ctx context.Context, userID int64) (alerting.Evaluation, error) {
	alerts, err := s.ListAlerts(ctx, userID)
	if err != nil {
		return alerting.Evaluation{}, fmt.Errorf("list alerts: %w", err)
	}
	current, err := s.CurrentRates(ctx, s.now())
	if err != nil {
		return alerting.Evaluation{}, err
	}
	return alerting.Evaluate(alerts, current), nil
}

// SimulateAlerts evaluates every alert against supplied rates. Nothing is written.
func (s *Service) SimulateAlerts(ctx context.Context, current rates.CurrentRates) (alerting.Evaluation, error) {
	alerts, err := s.store.ListAlerts(ctx, storage.AlertFilter{})
	if err != nil {
		return alerting.Evaluation{}, fmt.Errorf("list alerts: %w", err)
	}
	return alerting.Evaluate(alerts, current), nil
}

package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lira-rate-alerts/internal/storage"
)

// TriggeredTitle is the title of notifications written for triggered alerts.
const TriggeredTitle = "Alert Triggered"

// NotificationWriter is the slice of the record store the dispatcher needs.
type NotificationWriter interface {
	InsertNotification(ctx context.Context, n storage.Notification) (storage.Notification, error)
}

// DispatchFailure records a notification that could not be written.
type DispatchFailure struct {
	Alert AlertResult
	Err   error
}

// DispatchReport lists what one dispatch pass wrote and what it could not.
type DispatchReport struct {
	Created []storage.Notification
	Failed  []DispatchFailure
}

// Err joins the per-alert failures, or returns nil.
func (r DispatchReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("alert %d: %w", f.Alert.ID, f.Err))
	}
	return errors.Join(errs...)
}

// Dispatcher turns triggered alerts into stored notifications.
type Dispatcher struct {
	store  NotificationWriter
	logger zerolog.Logger
	now    func() time.Time
}

// NewDispatcher constructs a Dispatcher writing to store.
func NewDispatcher(store NotificationWriter, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logger.With().Str("component", "dispatcher").Logger(),
		now:    time.Now,
	}
}

// Dispatch writes one notification per triggered alert. Each write is
// independent: a failure is logged and reported, and the pass continues.
// Nothing is retried here.
func (d *Dispatcher) Dispatch(ctx context.Context, triggered []AlertResult) DispatchReport {
	report := DispatchReport{Created: make([]storage.Notification, 0, len(triggered))}
	for _, res := range triggered {
		note := storage.Notification{
			UserID:    res.UserID,
			Title:     TriggeredTitle,
			Message:   TriggeredMessage(res),
			CreatedAt: d.now(),
		}

		saved, err := d.store.InsertNotification(ctx, note)
		if err != nil {
			d.logger.Error().Err(err).
				Int64("alert_id", res.ID).
				Int64("user_id", res.UserID).
				Msg("failed to write alert notification")
			report.Failed = append(report.Failed, DispatchFailure{Alert: res, Err: err})
			continue
		}
		report.Created = append(report.Created, saved)
	}

	if len(triggered) > 0 {
		d.logger.Info().
			Int("triggered", len(triggered)).
			Int("created", len(report.Created)).
			Int("failed", len(report.Failed)).
			Msg("alert notifications dispatched")
	}
	return report
}

// TriggeredMessage renders the body of a triggered-alert notification.
func TriggeredMessage(res AlertResult) string {
	rate := res.ObservedRate
	if rate.IsZero() {
		rate = res.CurrentRate
	}
	return fmt.Sprintf("Your alert #%d was triggered: rate is %s, threshold was %s %s",
		res.ID,
		rate.StringFixed(2),
		res.Comparison,
		res.Threshold.String(),
	)
}

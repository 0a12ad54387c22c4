package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/alerting"
	"lira-rate-alerts/internal/metrics"
	"lira-rate-alerts/internal/outlier"
	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// Submission is a transaction as received from a caller.
type Submission struct {
	USDAmount decimal.Decimal
	LBPAmount decimal.Decimal
	Direction storage.Direction
	UserID    *int64
	Source    storage.Source
	// AddedAt defaults to the service clock.
	AddedAt time.Time
}

func (sub Submission) validate() error {
	if !sub.USDAmount.IsPositive() {
		return invalid("usd_amount must be greater than zero")
	}
	if !sub.LBPAmount.IsPositive() {
		return invalid("lbp_amount must be greater than zero")
	}
	if sub.Direction != storage.DirectionUSDToLBP && sub.Direction != storage.DirectionLBPToUSD {
		return invalid("direction must be usd_to_lbp or lbp_to_usd")
	}
	return nil
}

// SubmitResult reports every stage of one pipeline run.
type SubmitResult struct {
	Transaction storage.Transaction
	Outlier     outlier.Result
	Evaluation  alerting.Evaluation
	Dispatch    alerting.DispatchReport
}

// SubmitTransaction classifies, persists and then re-evaluates every alert.
// No lock spans the baseline read and the insert; concurrent submissions may
// classify against baselines that miss each other.
func (s *Service) SubmitTransaction(ctx context.Context, sub Submission) (SubmitResult, error) {
	res, err := s.insert(ctx, sub)
	if err != nil {
		return res, err
	}

	ev, report, err := s.Reevaluate(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int64("transaction_id", res.Transaction.ID).Msg("alert re-evaluation failed")
		return res, nil
	}
	res.Evaluation = ev
	res.Dispatch = report
	return res, nil
}

func (s *Service) insert(ctx context.Context, sub Submission) (SubmitResult, error) {
	if err := sub.validate(); err != nil {
		return SubmitResult{}, err
	}
	if sub.Source == "" {
		sub.Source = storage.SourceInternal
	}
	if sub.AddedAt.IsZero() {
		sub.AddedAt = s.now()
	}

	window := rates.Trailing(sub.AddedAt, s.window)
	baseline, err := s.store.ListTransactions(ctx, window.Filter(sub.Direction))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load baseline: %w", err)
	}

	candidate := outlier.Candidate{USDAmount: sub.USDAmount, LBPAmount: sub.LBPAmount, Direction: sub.Direction}
	score := outlier.Score(candidate, baseline, s.threshold)

	tx, err := s.store.InsertTransaction(ctx, storage.Transaction{
		USDAmount: sub.USDAmount,
		LBPAmount: sub.LBPAmount,
		Direction: sub.Direction,
		AddedAt:   sub.AddedAt,
		UserID:    sub.UserID,
		Source:    sub.Source,
		IsOutlier: score.Flagged,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("insert transaction: %w", err)
	}

	metrics.TransactionAccepted(string(tx.Direction), string(tx.Source), tx.IsOutlier)
	event := s.logger.Info()
	if tx.IsOutlier {
		event = s.logger.Warn()
	}
	event.Int64("transaction_id", tx.ID).
		Str("direction", string(tx.Direction)).
		Str("source", string(tx.Source)).
		Str("rate", score.CandidateRate.StringFixed(4)).
		Str("baseline_rate", score.BaselineRate.StringFixed(4)).
		Int("baseline_size", score.BaselineSize).
		Bool("outlier", tx.IsOutlier).
		Msg("transaction recorded")

	return SubmitResult{Transaction: tx, Outlier: score}, nil
}

// CurrentRates averages each direction over the trailing window ending at
// end, outliers excluded.
func (s *Service) CurrentRates(ctx context.Context, end time.Time) (rates.CurrentRates, error) {
	var current rates.CurrentRates
	window := rates.Trailing(end, s.window)
	for _, dir := range storage.Directions {
		txs, err := s.store.ListTransactions(ctx, window.Filter(dir))
		if err != nil {
			return rates.CurrentRates{}, fmt.Errorf("load %s window: %w", dir, err)
		}
		if avg, ok := rates.Average(txs); ok {
			current.Set(dir, &avg)
		}
	}
	return current, nil
}

// Reevaluate checks every alert in the system against the current rates and
// writes a notification for each triggered one.
func (s *Service) Reevaluate(ctx context.Context) (alerting.Evaluation, alerting.DispatchReport, error) {
	current, err := s.CurrentRates(ctx, s.now())
	if err != nil {
		return alerting.Evaluation{}, alerting.DispatchReport{}, err
	}

	alerts, err := s.store.ListAlerts(ctx, storage.AlertFilter{})
	if err != nil {
		return alerting.Evaluation{}, alerting.DispatchReport{}, fmt.Errorf("list alerts: %w", err)
	}

	ev := alerting.Evaluate(alerts, current)
	report := s.dispatcher.Dispatch(ctx, ev.Triggered)
	metrics.NotificationsDispatched(len(report.Created), len(report.Failed))
	return ev, report, nil
}

// ImportRow is one historical transaction to backfill.
type ImportRow struct {
	AddedAt   time.Time
	USDAmount decimal.Decimal
	LBPAmount decimal.Decimal
	Direction storage.Direction
	UserID    *int64
	Source    storage.Source
}

// ImportReport summarises an import run.
type ImportReport struct {
	Imported   int
	Outliers   int
	Evaluation *alerting.Evaluation
	Dispatch   *alerting.DispatchReport
}

// ImportTransactions inserts rows in chronological order so that each row is
// classified against the rows before it. Alerts are evaluated once at the end
// and only when notify is set.
func (s *Service) ImportTransactions(ctx context.Context, rows []ImportRow, notify bool) (ImportReport, error) {
	sorted := make([]ImportRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AddedAt.Before(sorted[j].AddedAt) })

	var report ImportReport
	for i, row := range sorted {
		if row.AddedAt.IsZero() {
			return report, invalid("row %d has no timestamp", i+1)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.insert(ctx, Submission{
			USDAmount: row.USDAmount,
			LBPAmount: row.LBPAmount,
			Direction: row.Direction,
			UserID:    row.UserID,
			Source:    row.Source,
			AddedAt:   row.AddedAt,
		})
		if err != nil {
			return report, fmt.Errorf("import row %d: %w", i+1, err)
		}
		report.Imported++
		if res.Transaction.IsOutlier {
			report.Outliers++
		}
	}

	if notify && report.Imported > 0 {
		ev, dispatch, err := s.Reevaluate(ctx)
		if err != nil {
			return report, err
		}
		report.Evaluation = &ev
		report.Dispatch = &dispatch
	}
	return report, nil
}

// ListTransactions returns the transactions submitted by userID, oldest first.
func (s *Service) ListTransactions(ctx context.Context, userID int64, limit int) ([]storage.Transaction, error) {
	filter := storage.TransactionFilter{UserID: &userID, Limit: limit}
	return s.store.ListTransactions(ctx, filter)
}

// RecentTransactions returns the latest transactions system wide, newest first.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]storage.Transaction, error) {
	return s.store.ListTransactions(ctx, storage.TransactionFilter{Descending: true, Limit: limit})
}

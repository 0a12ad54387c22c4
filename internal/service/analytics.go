package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// Statistics summarises direction over w, outliers excluded. A nil result
// means the window holds no transactions.
func (s *Service) Statistics(ctx context.Context, direction storage.Direction, w rates.Window) (*rates.Statistics, error) {
	if !w.From.Before(w.To) {
		return nil, invalid("start_date must be before end_date")
	}
	txs, err := s.store.ListTransactions(ctx, w.Filter(direction))
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return rates.ComputeStatistics(txs), nil
}

// HistoryQuery selects a bucketed series. Nil fields fall back to the
// caller's preferences and then to the defaults.
type HistoryQuery struct {
	UserID    *int64
	Direction *storage.Direction
	Interval  *rates.Interval
	From      *time.Time
	To        *time.Time
}

// History is a bucketed rate series.
type History struct {
	Direction storage.Direction `json:"direction"`
	Interval  rates.Interval    `json:"interval"`
	From      time.Time         `json:"start_date"`
	To        time.Time         `json:"end_date"`
	Buckets   []rates.Bucket    `json:"data"`
}

// History resolves q and buckets the matching non-outlier transactions.
func (s *Service) History(ctx context.Context, q HistoryQuery) (History, error) {
	pref := DefaultPreference(0)
	if q.UserID != nil {
		p, _, err := s.Preference(ctx, *q.UserID)
		if err != nil {
			return History{}, err
		}
		pref = p
	}

	h := History{Direction: pref.DefaultDirection, Interval: rates.Interval(pref.DefaultInterval)}
	if q.Direction != nil {
		h.Direction = *q.Direction
	}
	if q.Interval != nil {
		h.Interval = *q.Interval
	}

	switch {
	case q.From != nil && q.To != nil:
		h.From, h.To = *q.From, *q.To
	case q.From == nil && q.To == nil:
		hours := pref.DefaultTimeRange
		if hours <= 0 || hours > MaxTimeRange {
			hours = DefaultPreference(0).DefaultTimeRange
		}
		h.To = s.now()
		h.From = h.To.Add(-time.Duration(hours) * time.Hour)
	default:
		return History{}, invalid("start_date and end_date must be given together")
	}
	if !h.From.Before(h.To) {
		return History{}, invalid("start_date must be before end_date")
	}

	w := rates.Window{From: h.From, To: h.To}
	txs, err := s.store.ListTransactions(ctx, w.Filter(h.Direction))
	if err != nil {
		return History{}, fmt.Errorf("load transactions: %w", err)
	}
	h.Buckets = rates.BucketTransactions(txs, h.Interval)
	return h, nil
}

// VolumeReport is the administrative transaction volume summary. Outliers
// are counted, since the report describes traffic rather than rates.
type VolumeReport struct {
	From              time.Time       `json:"start_date"`
	To                time.Time       `json:"end_date"`
	TotalTransactions int             `json:"total_transactions"`
	USDToLBPCount     int             `json:"usd_to_lbp_transactions"`
	LBPToUSDCount     int             `json:"lbp_to_usd_transactions"`
	OutlierCount      int             `json:"outlier_transactions"`
	TotalUSDVolume    decimal.Decimal `json:"total_usd_volume"`
	TotalLBPVolume    decimal.Decimal `json:"total_lbp_volume"`
}

// Volume aggregates every transaction inside w.
func (s *Service) Volume(ctx context.Context, w rates.Window) (VolumeReport, error) {
	if !w.From.Before(w.To) {
		return VolumeReport{}, invalid("start_date must be before end_date")
	}
	from, to := w.From, w.To
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{From: &from, To: &to})
	if err != nil {
		return VolumeReport{}, fmt.Errorf("load transactions: %w", err)
	}

	report := VolumeReport{From: from, To: to, TotalTransactions: len(txs)}
	usd, lbp := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		usd = usd.Add(tx.USDAmount)
		lbp = lbp.Add(tx.LBPAmount)
		switch tx.Direction {
		case storage.DirectionUSDToLBP:
			report.USDToLBPCount++
		case storage.DirectionLBPToUSD:
			report.LBPToUSDCount++
		}
		if tx.IsOutlier {
			report.OutlierCount++
		}
	}
	report.TotalUSDVolume = usd.Round(2)
	report.TotalLBPVolume = lbp.Round(2)
	return report, nil
}

// DefaultPreference is used for users who never saved preferences.
func DefaultPreference(userID int64) storage.Preference {
	return storage.Preference{
		UserID:           userID,
		DefaultInterval:  string(rates.Daily),
		DefaultTimeRange: 72,
		DefaultDirection: storage.DirectionUSDToLBP,
	}
}

// Preference loads the user's preferences. found is false when defaults
// were returned.
func (s *Service) Preference(ctx context.Context, userID int64) (storage.Preference, bool, error) {
	pref, err := s.store.GetPreference(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultPreference(userID), false, nil
	}
	if err != nil {
		return storage.Preference{}, false, fmt.Errorf("load preference: %w", err)
	}
	return pref, true, nil
}

// PreferenceUpdate carries the fields to change; nil fields are kept.
type PreferenceUpdate struct {
	DefaultInterval  *rates.Interval
	DefaultTimeRange *int
	DefaultDirection *storage.Direction
}

// MaxTimeRange bounds default_time_range (hours) to one year.
const MaxTimeRange = 8760

// UpdatePreference merges upd into the stored or default preferences.
func (s *Service) UpdatePreference(ctx context.Context, userID int64, upd PreferenceUpdate) (storage.Preference, error) {
	pref, _, err := s.Preference(ctx, userID)
	if err != nil {
		return storage.Preference{}, err
	}
	return s.savePreference(ctx, userID, pref, upd)
}

// CreatePreference stores preferences for a user who has none yet; unset
// fields take the defaults.
func (s *Service) CreatePreference(ctx context.Context, userID int64, upd PreferenceUpdate) (storage.Preference, error) {
	_, found, err := s.Preference(ctx, userID)
	if err != nil {
		return storage.Preference{}, err
	}
	if found {
		return storage.Preference{}, invalid("preferences already exist for user %d, use PUT to update", userID)
	}
	return s.savePreference(ctx, userID, DefaultPreference(userID), upd)
}

// ReplacePreference updates preferences that must already exist.
func (s *Service) ReplacePreference(ctx context.Context, userID int64, upd PreferenceUpdate) (storage.Preference, error) {
	pref, found, err := s.Preference(ctx, userID)
	if err != nil {
		return storage.Preference{}, err
	}
	if !found {
		return storage.Preference{}, storage.ErrNotFound
	}
	return s.savePreference(ctx, userID, pref, upd)
}

// DeletePreference drops a user's preferences so the defaults apply again.
func (s *Service) DeletePreference(ctx context.Context, userID int64) error {
	if err := s.store.DeletePreference(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete preference: %w", err)
	}
	s.logger.Info().Int64("user_id", userID).Msg("preferences deleted")
	return nil
}

func (s *Service) savePreference(ctx context.Context, userID int64, pref storage.Preference, upd PreferenceUpdate) (storage.Preference, error) {
	if upd.DefaultInterval != nil {
		if _, err := rates.ParseInterval(string(*upd.DefaultInterval)); err != nil {
			return storage.Preference{}, invalid("%v", err)
		}
		pref.DefaultInterval = string(*upd.DefaultInterval)
	}
	if upd.DefaultTimeRange != nil {
		if *upd.DefaultTimeRange <= 0 || *upd.DefaultTimeRange > MaxTimeRange {
			return storage.Preference{}, invalid("default_time_range must be between 1 and %d hours", MaxTimeRange)
		}
		pref.DefaultTimeRange = *upd.DefaultTimeRange
	}
	if upd.DefaultDirection != nil {
		if _, err := storage.ParseDirection(string(*upd.DefaultDirection)); err != nil {
			return storage.Preference{}, invalid("%v", err)
		}
		pref.DefaultDirection = *upd.DefaultDirection
	}
	pref.UserID = userID
	pref.UpdatedAt = s.now()

	if err := s.store.UpsertPreference(ctx, pref); err != nil {
		return storage.Preference{}, fmt.Errorf("save preference: %w", err)
	}
	return pref, nil
}

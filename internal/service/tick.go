package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lira-rate-alerts/internal/alerting"
	"lira-rate-alerts/internal/metrics"
	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// ProcessTick runs one scheduled slot: ingest the external quote, then push
// the digest. Either step is skipped when not configured.
func (s *Service) ProcessTick(ctx context.Context, slot time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		metrics.Tick("failed")
		return err
	}
	if !proceed {
		metrics.Tick("skipped")
		s.logger.Debug().Time("slot", slot).Msg("skip slot because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	var errs []error
	if s.external != nil {
		if err := s.ingestExternal(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.digest != nil {
		if err := s.pushDigest(ctx, slot); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		metrics.Tick("failed")
		return err
	}
	metrics.Tick("ok")
	return nil
}

func (s *Service) ingestExternal(ctx context.Context) error {
	quote, err := s.external.FetchRates(ctx)
	if err != nil {
		return fmt.Errorf("fetch external rates: %w", err)
	}

	ingested := 0
	for _, dir := range storage.Directions {
		rate := quote.USDToLBP
		if dir == storage.DirectionLBPToUSD {
			rate = quote.LBPToUSD
		}
		if !rate.IsPositive() {
			continue
		}
		if _, err := s.insert(ctx, Submission{
			USDAmount: s.externalAmount,
			LBPAmount: rate.Mul(s.externalAmount),
			Direction: dir,
			Source:    storage.SourceExternal,
		}); err != nil {
			return fmt.Errorf("record external %s rate: %w", dir, err)
		}
		ingested++
	}

	if ingested == 0 {
		return nil
	}
	if _, report, err := s.Reevaluate(ctx); err != nil {
		return fmt.Errorf("re-evaluate alerts: %w", err)
	} else if report.Err() != nil {
		s.logger.Warn().Err(report.Err()).Msg("some alert notifications were not written")
	}
	return nil
}

// BuildDigest computes per-direction statistics over the window ending at end.
func (s *Service) BuildDigest(ctx context.Context, end time.Time) (alerting.Digest, error) {
	w := rates.Trailing(end, s.window)
	digest := alerting.Digest{
		GeneratedAt: end,
		Window:      s.window,
		Stats:       make(map[storage.Direction]*rates.Statistics, len(storage.Directions)),
	}
	for _, dir := range storage.Directions {
		stats, err := s.Statistics(ctx, dir, w)
		if err != nil {
			return alerting.Digest{}, err
		}
		digest.Stats[dir] = stats
	}

	from, to := w.From, w.To
	all, err := s.store.CountTransactions(ctx, storage.TransactionFilter{From: &from, To: &to})
	if err != nil {
		return alerting.Digest{}, fmt.Errorf("count transactions: %w", err)
	}
	clean, err := s.store.CountTransactions(ctx, storage.TransactionFilter{From: &from, To: &to, ExcludeOutliers: true})
	if err != nil {
		return alerting.Digest{}, fmt.Errorf("count transactions: %w", err)
	}
	digest.Outliers = all - clean
	return digest, nil
}

func (s *Service) pushDigest(ctx context.Context, slot time.Time) error {
	digest, err := s.BuildDigest(ctx, s.now())
	if err != nil {
		return err
	}
	if err := s.digest.Notify(ctx, digest); err != nil {
		return fmt.Errorf("send digest for %s: %w", slot.Format(time.RFC3339), err)
	}
	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

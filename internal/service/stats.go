package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// SystemStats is the administrative overview of the transaction store.
type SystemStats struct {
	TotalTransactions  int64            `json:"total_transactions"`
	RecentTransactions int64            `json:"recent_transactions"`
	WindowHours        int              `json:"window_hours"`
	OverallUSDToLBP    *decimal.Decimal `json:"overall_avg_usd_to_lbp_rate"`
	OverallLBPToUSD    *decimal.Decimal `json:"overall_avg_lbp_to_usd_rate"`
}

// Stats counts all transactions and those inside the trailing window, and
// averages every non-outlier transaction per direction.
func (s *Service) Stats(ctx context.Context) (SystemStats, error) {
	total, err := s.store.CountTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return SystemStats{}, fmt.Errorf("count transactions: %w", err)
	}

	w := rates.Trailing(s.now(), s.window)
	recent, err := s.store.CountTransactions(ctx, storage.TransactionFilter{From: &w.From, To: &w.To})
	if err != nil {
		return SystemStats{}, fmt.Errorf("count recent transactions: %w", err)
	}

	stats := SystemStats{
		TotalTransactions:  total,
		RecentTransactions: recent,
		WindowHours:        int(s.window.Hours()),
	}
	for _, dir := range storage.Directions {
		txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Direction: &dir, ExcludeOutliers: true})
		if err != nil {
			return SystemStats{}, fmt.Errorf("load %s transactions: %w", dir, err)
		}
		if avg, ok := rates.Average(txs); ok {
			rounded := avg.Round(rates.Places)
			if dir == storage.DirectionUSDToLBP {
				stats.OverallUSDToLBP = &rounded
			} else {
				stats.OverallLBPToUSD = &rounded
			}
		}
	}
	return stats, nil
}

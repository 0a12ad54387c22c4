// Package rates derives exchange-rate statistics and time buckets from
// transactions. Everything here is pure: callers select the transactions
// (direction, window, outlier exclusion) and pass them in.
package rates

import (
	"time"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/storage"
)

// Places is the number of decimal places reported rates are rounded to.
const Places = 4

// DefaultWindow is the trailing window used for current rates and baselines.
const DefaultWindow = 72 * time.Hour

var hundred = decimal.NewFromInt(100)

// Statistics summarises implied rates of a transaction set. All values are
// rounded to Places.
type Statistics struct {
	Count             int             `json:"transaction_count"`
	AverageRate       decimal.Decimal `json:"average_rate"`
	MinRate           decimal.Decimal `json:"min_rate"`
	MaxRate           decimal.Decimal `json:"max_rate"`
	FirstRate         decimal.Decimal `json:"first_rate"`
	LastRate          decimal.Decimal `json:"last_rate"`
	PercentageChange  decimal.Decimal `json:"percentage_change"`
	VolatilityPercent decimal.Decimal `json:"volatility_percent"`
}

// ComputeStatistics returns nil when txs is empty. First and last are chosen
// by AddedAt; ties keep input order.
func ComputeStatistics(txs []storage.Transaction) *Statistics {
	if len(txs) == 0 {
		return nil
	}

	var (
		sum     = decimal.Zero
		minRate decimal.Decimal
		maxRate decimal.Decimal
		first   decimal.Decimal
		last    decimal.Decimal
		firstAt time.Time
		lastAt  time.Time
	)
	for i, tx := range txs {
		rate := tx.ImpliedRate()
		sum = sum.Add(rate)
		if i == 0 {
			minRate, maxRate, first, last = rate, rate, rate, rate
			firstAt, lastAt = tx.AddedAt, tx.AddedAt
			continue
		}
		if rate.LessThan(minRate) {
			minRate = rate
		}
		if rate.GreaterThan(maxRate) {
			maxRate = rate
		}
		if tx.AddedAt.Before(firstAt) {
			first, firstAt = rate, tx.AddedAt
		}
		if !tx.AddedAt.Before(lastAt) {
			last, lastAt = rate, tx.AddedAt
		}
	}

	avg := sum.Div(decimal.NewFromInt(int64(len(txs))))
	change := last.Sub(first).Div(first).Mul(hundred)
	volatility := maxRate.Sub(minRate).Div(avg).Mul(hundred)

	return &Statistics{
		Count:             len(txs),
		AverageRate:       avg.Round(Places),
		MinRate:           minRate.Round(Places),
		MaxRate:           maxRate.Round(Places),
		FirstRate:         first.Round(Places),
		LastRate:          last.Round(Places),
		PercentageChange:  change.Round(Places),
		VolatilityPercent: volatility.Round(Places),
	}
}

// Average returns the unrounded mean implied rate, or false for an empty set.
func Average(txs []storage.Transaction) (decimal.Decimal, bool) {
	if len(txs) == 0 {
		return decimal.Decimal{}, false
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.ImpliedRate())
	}
	return sum.Div(decimal.NewFromInt(int64(len(txs)))), true
}

// CurrentRates holds the average rate per direction; nil means no recent data.
type CurrentRates struct {
	USDToLBP *decimal.Decimal `json:"usd_to_lbp_rate"`
	LBPToUSD *decimal.Decimal `json:"lbp_to_usd_rate"`
}

// For returns the rate for direction, or nil.
func (c CurrentRates) For(direction storage.Direction) *decimal.Decimal {
	switch direction {
	case storage.DirectionUSDToLBP:
		return c.USDToLBP
	case storage.DirectionLBPToUSD:
		return c.LBPToUSD
	default:
		return nil
	}
}

// Set stores rate for direction.
func (c *CurrentRates) Set(direction storage.Direction, rate *decimal.Decimal) {
	switch direction {
	case storage.DirectionUSDToLBP:
		c.USDToLBP = rate
	case storage.DirectionLBPToUSD:
		c.LBPToUSD = rate
	}
}

// Rounded returns a copy with both rates rounded to Places.
func (c CurrentRates) Rounded() CurrentRates {
	round := func(d *decimal.Decimal) *decimal.Decimal {
		if d == nil {
			return nil
		}
		r := d.Round(Places)
		return &r
	}
	return CurrentRates{USDToLBP: round(c.USDToLBP), LBPToUSD: round(c.LBPToUSD)}
}

// Window is an inclusive time range.
type Window struct {
	From time.Time
	To   time.Time
}

// Trailing returns the window of width ending at end.
func Trailing(end time.Time, width time.Duration) Window {
	if width <= 0 {
		width = DefaultWindow
	}
	return Window{From: end.Add(-width), To: end}
}

// Filter builds a store filter for direction inside w, outliers excluded.
func (w Window) Filter(direction storage.Direction) storage.TransactionFilter {
	from, to := w.From, w.To
	return storage.TransactionFilter{
		Direction:       &direction,
		From:            &from,
		To:              &to,
		ExcludeOutliers: true,
	}
}

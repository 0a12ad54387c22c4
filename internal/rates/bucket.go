package rates

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/storage"
)

// Interval is the width of a history bucket.
type Interval string

const (
	Hourly Interval = "hourly"
	Daily  Interval = "daily"
)

// ParseInterval validates an interval name.
func ParseInterval(v string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(v))) {
	case Hourly:
		return Hourly, nil
	case Daily:
		return Daily, nil
	default:
		return "", fmt.Errorf("interval must be 'hourly' or 'daily', got %q", v)
	}
}

// Bucket aggregates the transactions whose floored timestamp equals Start.
type Bucket struct {
	Start       time.Time       `json:"bucket_start"`
	SampleCount int             `json:"sample_count"`
	AverageRate decimal.Decimal `json:"average_rate"`
}

// Floor truncates t to the start of its hour or day on t's own wall clock.
func Floor(t time.Time, interval Interval) time.Time {
	switch interval {
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	}
}

// BucketTransactions groups txs by floored timestamp. Only observed buckets
// are returned, ascending by start.
func BucketTransactions(txs []storage.Transaction, interval Interval) []Bucket {
	type acc struct {
		start time.Time
		sum   decimal.Decimal
		count int
	}

	byStart := make(map[int64]*acc)
	for _, tx := range txs {
		start := Floor(tx.AddedAt, interval)
		key := start.UnixNano()
		a, ok := byStart[key]
		if !ok {
			a = &acc{start: start, sum: decimal.Zero}
			byStart[key] = a
		}
		a.sum = a.sum.Add(tx.ImpliedRate())
		a.count++
	}

	buckets := make([]Bucket, 0, len(byStart))
	for _, a := range byStart {
		buckets = append(buckets, Bucket{
			Start:       a.start,
			SampleCount: a.count,
			AverageRate: a.sum.Div(decimal.NewFromInt(int64(a.count))).Round(Places),
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}

package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction identifies which conversion a transaction or alert concerns.
type Direction string

const (
	DirectionUSDToLBP Direction = "usd_to_lbp"
	DirectionLBPToUSD Direction = "lbp_to_usd"
)

// Directions lists both supported directions in display order.
var Directions = []Direction{DirectionUSDToLBP, DirectionLBPToUSD}

// ParseDirection accepts the canonical names plus the boolean form used by
// older clients ("true" means USD to LBP).
func ParseDirection(v string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case string(DirectionUSDToLBP), "true":
		return DirectionUSDToLBP, nil
	case string(DirectionLBPToUSD), "false":
		return DirectionLBPToUSD, nil
	default:
		return "", fmt.Errorf("invalid direction %q", v)
	}
}

// Comparison is the side of the threshold an alert fires on.
type Comparison string

const (
	ComparisonAbove Comparison = "above"
	ComparisonBelow Comparison = "below"
)

// ParseComparison validates an alert comparison.
func ParseComparison(v string) (Comparison, error) {
	switch Comparison(strings.ToLower(strings.TrimSpace(v))) {
	case ComparisonAbove:
		return ComparisonAbove, nil
	case ComparisonBelow:
		return ComparisonBelow, nil
	default:
		return "", fmt.Errorf("comparison must be 'above' or 'below', got %q", v)
	}
}

// Source records where a transaction came from.
type Source string

const (
	SourceInternal Source = "internal"
	SourceExternal Source = "external"
)

// Transaction is a single USD/LBP exchange. Only IsOutlier is decided by the
// system, once, before the record is inserted.
type Transaction struct {
	ID        int64           `json:"id"`
	USDAmount decimal.Decimal `json:"usd_amount"`
	LBPAmount decimal.Decimal `json:"lbp_amount"`
	Direction Direction       `json:"direction"`
	AddedAt   time.Time       `json:"added_date"`
	UserID    *int64          `json:"user_id"`
	Source    Source          `json:"source"`
	IsOutlier bool            `json:"is_outlier"`
}

// ImpliedRate returns LBP per USD for the transaction.
func (t Transaction) ImpliedRate() decimal.Decimal {
	return t.LBPAmount.Div(t.USDAmount)
}

// Alert is a user-defined threshold on the current rate of one direction.
type Alert struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Direction  Direction       `json:"direction"`
	Threshold  decimal.Decimal `json:"threshold"`
	Comparison Comparison      `json:"comparison"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Notification is a durable message addressed to one user.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Preference holds per-user defaults for history queries.
type Preference struct {
	UserID           int64     `json:"user_id"`
	DefaultInterval  string    `json:"default_interval"`
	DefaultTimeRange int       `json:"default_time_range"`
	DefaultDirection Direction `json:"default_direction"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// WatchlistItem is a labelled direction a user follows, with an optional
// target rate.
type WatchlistItem struct {
	ID         int64            `json:"id"`
	UserID     int64            `json:"user_id"`
	Label      string           `json:"label"`
	Direction  Direction        `json:"direction"`
	TargetRate *decimal.Decimal `json:"target_rate"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TransactionFilter narrows a transaction scan. From and To are inclusive.
type TransactionFilter struct {
	Direction       *Direction
	From            *time.Time
	To              *time.Time
	UserID          *int64
	ExcludeOutliers bool
	Descending      bool
	Limit           int
}

// Matches reports whether tx satisfies every predicate of the filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.Direction != nil && tx.Direction != *f.Direction {
		return false
	}
	if f.From != nil && tx.AddedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.AddedAt.After(*f.To) {
		return false
	}
	if f.UserID != nil && (tx.UserID == nil || *tx.UserID != *f.UserID) {
		return false
	}
	if f.ExcludeOutliers && tx.IsOutlier {
		return false
	}
	return true
}

// AlertFilter narrows an alert scan; a zero filter returns every alert.
type AlertFilter struct {
	UserID    *int64
	Direction *Direction
}

// Matches reports whether a satisfies the filter.
func (f AlertFilter) Matches(a Alert) bool {
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.Direction != nil && a.Direction != *f.Direction {
		return false
	}
	return true
}

// Local reinterprets the wall clock of t in time.Local. Timestamps are kept as
// naive local time end to end; Postgres hands TIMESTAMP columns back in UTC.
func Local(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

package alerting

import (
	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// AlertResult is an alert together with the rate it was evaluated against.
type AlertResult struct {
	storage.Alert
	// CurrentRate is the evaluated rate rounded to rates.Places.
	CurrentRate decimal.Decimal `json:"current_rate"`
	// ObservedRate is the unrounded rate used for the comparison.
	ObservedRate decimal.Decimal `json:"-"`
}

// Evaluation partitions alerts by trigger state. Alerts whose direction has
// no current rate appear in neither list.
type Evaluation struct {
	Triggered   []AlertResult `json:"triggered_alerts"`
	Untriggered []AlertResult `json:"untriggered_alerts"`
}

// Evaluate checks every alert against the current rate of its direction.
// Input order is preserved within each list.
func Evaluate(alerts []storage.Alert, current rates.CurrentRates) Evaluation {
	ev := Evaluation{
		Triggered:   make([]AlertResult, 0),
		Untriggered: make([]AlertResult, 0),
	}
	for _, alert := range alerts {
		rate := current.For(alert.Direction)
		if rate == nil {
			continue
		}

		res := AlertResult{
			Alert:        alert,
			CurrentRate:  rate.Round(rates.Places),
			ObservedRate: *rate,
		}
		if Triggered(alert, *rate) {
			ev.Triggered = append(ev.Triggered, res)
		} else {
			ev.Untriggered = append(ev.Untriggered, res)
		}
	}
	return ev
}

// Triggered applies the alert comparison. Both sides are strict, so a rate
// equal to the threshold never triggers.
func Triggered(alert storage.Alert, rate decimal.Decimal) bool {
	switch alert.Comparison {
	case storage.ComparisonAbove:
		return rate.GreaterThan(alert.Threshold)
	case storage.ComparisonBelow:
		return rate.LessThan(alert.Threshold)
	default:
		return false
	}
}

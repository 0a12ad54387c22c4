package outlier

import (
	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// DefaultThreshold is the relative deviation above which a candidate is flagged.
var DefaultThreshold = decimal.NewFromFloat(0.5)

// Candidate is a transaction that has not been persisted yet.
type Candidate struct {
	USDAmount decimal.Decimal
	LBPAmount decimal.Decimal
	Direction storage.Direction
}

// Rate returns the implied LBP per USD rate of the candidate.
func (c Candidate) Rate() decimal.Decimal {
	return c.LBPAmount.Div(c.USDAmount)
}

// Result carries the numbers behind a classification.
type Result struct {
	Flagged       bool
	CandidateRate decimal.Decimal
	BaselineRate  decimal.Decimal
	Deviation     decimal.Decimal
	BaselineSize  int
}

// Score compares the candidate rate with the average of baseline. An empty
// baseline never flags.
func Score(c Candidate, baseline []storage.Transaction, threshold decimal.Decimal) Result {
	res := Result{CandidateRate: c.Rate(), BaselineSize: len(baseline)}

	avg, ok := rates.Average(baseline)
	if !ok {
		return res
	}

	res.BaselineRate = avg
	res.Deviation = res.CandidateRate.Sub(avg).Abs().Div(avg)
	res.Flagged = res.Deviation.GreaterThan(threshold)
	return res
}

// Classify reports whether c deviates from the baseline average by strictly
// more than threshold.
func Classify(c Candidate, baseline []storage.Transaction, threshold decimal.Decimal) bool {
	return Score(c, baseline, threshold).Flagged
}

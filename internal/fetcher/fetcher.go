package fetcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one observation of the published market rates, in LBP per USD.
// A zero rate means the source did not publish that direction.
type Quote struct {
	USDToLBP  decimal.Decimal
	LBPToUSD  decimal.Decimal
	FetchedAt time.Time
	Raw       json.RawMessage
}

// ExternalRateFetcher retrieves the current USD/LBP quote from a third party.
type ExternalRateFetcher interface {
	FetchRates(ctx context.Context) (Quote, error)
}

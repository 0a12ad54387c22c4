package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ExternalOptions parameterise the HTTP quote fetcher.
type ExternalOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// External fetches a JSON quote of the form
// {"usd_to_lbp": 89500, "lbp_to_usd": 89700}.
type External struct {
	opts   ExternalOptions
	logger zerolog.Logger
	client *http.Client
	now    func() time.Time
}

// NewExternal constructs an external quote fetcher.
func NewExternal(opts ExternalOptions, logger zerolog.Logger) *External {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &External{
		opts:   opts,
		logger: logger.With().Str("component", "external_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// FetchRates performs the GET and validates both directions.
func (e *External) FetchRates(ctx context.Context) (Quote, error) {
	if strings.TrimSpace(e.opts.URL) == "" {
		return Quote{}, errors.New("external quote url required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.opts.URL, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "lirawatch/1.0")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Quote{}, parseHTTPError(resp.StatusCode, payloadBytes)
	}

	var res quoteResponse
	if err := json.Unmarshal(payloadBytes, &res); err != nil {
		return Quote{}, fmt.Errorf("decode quote: %w", err)
	}

	if res.USDToLBP.IsNegative() || res.LBPToUSD.IsNegative() {
		return Quote{}, errors.New("quote contains a negative rate")
	}
	if res.USDToLBP.IsZero() && res.LBPToUSD.IsZero() {
		return Quote{}, errors.New("quote contains no rates")
	}

	q := Quote{
		USDToLBP:  res.USDToLBP,
		LBPToUSD:  res.LBPToUSD,
		FetchedAt: e.now(),
		Raw:       json.RawMessage(payloadBytes),
	}
	e.logger.Debug().
		Str("usd_to_lbp", q.USDToLBP.String()).
		Str("lbp_to_usd", q.LBPToUSD.String()).
		Msg("external quote fetched")
	return q, nil
}

type quoteResponse struct {
	USDToLBP decimal.Decimal `json:"usd_to_lbp"`
	LBPToUSD decimal.Decimal `json:"lbp_to_usd"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("external quote error (%d): %s", status, apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("external quote error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("external quote error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("external quote error (%d)", status)
}

var _ ExternalRateFetcher = (*External)(nil)

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/alerting"
	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

// Simulate evaluates every stored alert against the supplied rates without
// writing notifications.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	current, err := simulatedRates(opts)
	if err != nil {
		return err
	}

	return a.withService(ctx, func(svc *service.Service) error {
		ev, err := svc.SimulateAlerts(ctx, current)
		if err != nil {
			return err
		}
		a.Logger.Info().
			Int("triggered", len(ev.Triggered)).
			Int("untriggered", len(ev.Untriggered)).
			Msg("simulation completed")
		return writeEvaluation(os.Stdout, ev)
	})
}

func simulatedRates(opts SimulateOptions) (rates.CurrentRates, error) {
	var current rates.CurrentRates
	if opts.USDToLBP == "" && opts.LBPToUSD == "" {
		return current, errors.New("at least one of --usd-to-lbp or --lbp-to-usd must be provided")
	}

	for dir, raw := range map[storage.Direction]string{
		storage.DirectionUSDToLBP: opts.USDToLBP,
		storage.DirectionLBPToUSD: opts.LBPToUSD,
	} {
		if raw == "" {
			continue
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return current, fmt.Errorf("%s rate: %w", dir, err)
		}
		if !rate.IsPositive() {
			return current, fmt.Errorf("%s rate must be greater than zero", dir)
		}
		current.Set(dir, &rate)
	}
	return current, nil
}

func writeEvaluation(out io.Writer, ev alerting.Evaluation) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Alert\tUser\tDirection\tCondition\tRate\tTriggered")
	rows := func(results []alerting.AlertResult, triggered bool) {
		for _, res := range results {
			fmt.Fprintf(writer, "#%d\t%d\t%s\t%s %s\t%s\t%s\n",
				res.ID,
				res.UserID,
				res.Direction,
				res.Comparison,
				res.Threshold.String(),
				res.CurrentRate.StringFixed(rates.Places),
				yesNo(triggered),
			)
		}
	}
	rows(ev.Triggered, true)
	rows(ev.Untriggered, false)
	return writer.Flush()
}

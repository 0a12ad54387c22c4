package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

const timeLayout = "2006-01-02 15:04:05"

// Show prints the current rates and the most recent transactions.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	return a.withService(ctx, func(svc *service.Service) error {
		current, err := svc.CurrentRates(ctx, svc.Now())
		if err != nil {
			return err
		}
		txs, err := svc.RecentTransactions(ctx, opts.Limit)
		if err != nil {
			return err
		}
		return writeShow(os.Stdout, current, txs)
	})
}

func (a *App) withService(ctx context.Context, fn func(svc *service.Service) error) error {
	backend, closeBackend, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeBackend()
	return fn(a.newService(backend, nil))
}

func writeShow(out io.Writer, current rates.CurrentRates, txs []storage.Transaction) error {
	fmt.Fprintf(out, "usd_to_lbp: %s\n", rateOrDash(current.For(storage.DirectionUSDToLBP)))
	fmt.Fprintf(out, "lbp_to_usd: %s\n\n", rateOrDash(current.For(storage.DirectionLBPToUSD)))

	if len(txs) == 0 {
		fmt.Fprintln(out, "no transactions found")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTime\tDirection\tUSD\tLBP\tRate\tSource\tOutlier")
	for _, tx := range txs {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID,
			tx.AddedAt.Format(timeLayout),
			tx.Direction,
			tx.USDAmount.StringFixed(2),
			tx.LBPAmount.StringFixed(2),
			tx.ImpliedRate().StringFixed(rates.Places),
			sanitizeInline(string(tx.Source)),
			yesNo(tx.IsOutlier),
		)
	}
	return writer.Flush()
}

func rateOrDash(rate *decimal.Decimal) string {
	if rate == nil {
		return "-"
	}
	return rate.StringFixed(rates.Places)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return ""
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

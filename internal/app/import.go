package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

var importTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Import loads historical transactions from a CSV file. The header must name
// added_date, usd_amount, lbp_amount and direction; user_id and source are
// optional.
func (a *App) Import(ctx context.Context, opts ImportOptions) error {
	if opts.Path == "" {
		return errors.New("--file is required")
	}

	file, err := os.Open(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	rows, err := readImportCSV(file)
	if err != nil {
		return err
	}
	a.Logger.Info().Int("rows", len(rows)).Str("file", opts.Path).Msg("parsed import file")

	if opts.DryRun {
		return nil
	}

	return a.withService(ctx, func(svc *service.Service) error {
		report, err := svc.ImportTransactions(ctx, rows, opts.Notify)
		if err != nil {
			return err
		}

		event := a.Logger.Info().Int("imported", report.Imported).Int("outliers", report.Outliers)
		if report.Dispatch != nil {
			event = event.Int("notifications", len(report.Dispatch.Created)).Int("failed", len(report.Dispatch.Failed))
		}
		event.Msg("import completed")
		return nil
	})
}

func readImportCSV(in io.Reader) ([]service.ImportRow, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("import file is empty")
		}
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"added_date", "usd_amount", "lbp_amount", "direction"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("import header is missing %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var rows []service.ImportRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row, err := parseImportRecord(func(name string) string { return field(record, name) })
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseImportRecord(field func(name string) string) (service.ImportRow, error) {
	var row service.ImportRow

	addedAt, err := parseImportTime(field("added_date"))
	if err != nil {
		return row, err
	}
	usd, err := decimal.NewFromString(field("usd_amount"))
	if err != nil {
		return row, fmt.Errorf("usd_amount: %w", err)
	}
	lbp, err := decimal.NewFromString(field("lbp_amount"))
	if err != nil {
		return row, fmt.Errorf("lbp_amount: %w", err)
	}
	dir, err := storage.ParseDirection(field("direction"))
	if err != nil {
		return row, err
	}

	row = service.ImportRow{
		AddedAt:   addedAt,
		USDAmount: usd,
		LBPAmount: lbp,
		Direction: dir,
		Source:    storage.SourceInternal,
	}

	if v := field("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return row, fmt.Errorf("user_id: %w", err)
		}
		row.UserID = &id
	}
	switch src := storage.Source(strings.ToLower(field("source"))); src {
	case "":
	case storage.SourceInternal, storage.SourceExternal:
		row.Source = src
	default:
		return row, fmt.Errorf("unknown source %q", src)
	}
	return row, nil
}

func parseImportTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("added_date is required")
	}
	for _, layout := range importTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return storage.Local(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("added_date %q: unsupported time format", v)
}

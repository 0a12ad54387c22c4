package app

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

// Export renders the bucketed rate history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	q := service.HistoryQuery{From: opts.From, To: opts.To}
	if opts.Direction != "" {
		dir, err := storage.ParseDirection(opts.Direction)
		if err != nil {
			return err
		}
		q.Direction = &dir
	}
	if opts.Interval != "" {
		interval, err := rates.ParseInterval(opts.Interval)
		if err != nil {
			return err
		}
		q.Interval = &interval
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		return errors.New("from must be before to")
	}

	return a.withService(ctx, func(svc *service.Service) error {
		history, err := svc.History(ctx, q)
		if err != nil {
			return err
		}
		if len(history.Buckets) == 0 {
			a.Logger.Info().Msg("no buckets found for export window")
			return nil
		}

		buckets := downsampleBuckets(history.Buckets, opts.MaxPoints)
		a.Logger.Info().
			Str("direction", string(history.Direction)).
			Str("interval", string(history.Interval)).
			Int("total", len(history.Buckets)).
			Int("exported", len(buckets)).
			Msg("exporting history")

		if opts.CSVPath != "" {
			if err := writeBucketsCSVFile(opts.CSVPath, buckets); err != nil {
				return err
			}
		}
		if opts.PNGPath != "" {
			if err := writeBucketsPNG(opts.PNGPath, history.Direction, buckets); err != nil {
				return err
			}
		}
		return nil
	})
}

func downsampleBuckets(buckets []rates.Bucket, max int) []rates.Bucket {
	if max <= 0 || len(buckets) <= max {
		return buckets
	}
	if max == 1 {
		return buckets[len(buckets)-1:]
	}

	result := make([]rates.Bucket, 0, max)
	step := float64(len(buckets)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(buckets) {
			idx = len(buckets) - 1
		}
		result = append(result, buckets[idx])
	}
	return result
}

func writeBucketsCSVFile(path string, buckets []rates.Bucket) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return writeBucketsCSV(file, buckets)
}

func writeBucketsCSV(out io.Writer, buckets []rates.Bucket) error {
	writer := csv.NewWriter(out)

	if err := writer.Write([]string{"bucket_start", "average_rate", "sample_count"}); err != nil {
		return err
	}
	for _, b := range buckets {
		record := []string{
			b.Start.Format(timeLayout),
			b.AverageRate.StringFixed(rates.Places),
			strconv.Itoa(b.SampleCount),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeBucketsPNG(path string, direction storage.Direction, buckets []rates.Bucket) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(buckets))
	avg := make([]float64, len(buckets))
	counts := make([]float64, len(buckets))
	for i, b := range buckets {
		x[i] = b.Start
		avg[i] = b.AverageRate.InexactFloat64()
		counts[i] = float64(b.SampleCount)
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Rate (LBP per USD)",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		YAxisSecondary: chart.YAxis{
			Name: "Transactions",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    string(direction) + " average",
				XValues: x,
				YValues: avg,
			},
			chart.TimeSeries{
				Name:    "Sample count",
				XValues: x,
				YValues: counts,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

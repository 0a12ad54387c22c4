package rates

import (
	"testing"
	"time"

	"lira-rate-alerts/internal/storage"
)

func TestBucketHourlySameHour(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local)
	txs := []storage.Transaction{
		tx(1, 89000, day.Add(10*time.Hour + 15*time.Minute)),
		tx(1, 91000, day.Add(10*time.Hour + 45*time.Minute)),
	}

	buckets := BucketTransactions(txs, Hourly)
	if len(buckets) != 1 {
		t.Fatalf("expected one bucket, got %d", len(buckets))
	}
	if !buckets[0].Start.Equal(day.Add(10 * time.Hour)) {
		t.Fatalf("bucket start = %s", buckets[0].Start)
	}
	if buckets[0].SampleCount != 2 {
		t.Fatalf("sample count = %d", buckets[0].SampleCount)
	}
	if !buckets[0].AverageRate.Equal(mustDec(t, "90000")) {
		t.Fatalf("average = %s", buckets[0].AverageRate)
	}
}

func TestBucketPartitionAndOrder(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local)
	txs := []storage.Transaction{
		tx(1, 90000, day.Add(26 * time.Hour)),
		tx(1, 89000, day.Add(1 * time.Hour)),
		tx(1, 89500, day.Add(1*time.Hour + 59*time.Minute + 59*time.Second)),
		tx(1, 91000, day.Add(5 * time.Hour)),
		tx(1, 92000, day.Add(47*time.Hour + 30*time.Minute)),
	}

	for _, interval := range []Interval{Hourly, Daily} {
		buckets := BucketTransactions(txs, interval)
		total := 0
		for i, b := range buckets {
			if b.SampleCount == 0 {
				t.Fatalf("%s: empty bucket emitted at %s", interval, b.Start)
			}
			if i > 0 && !buckets[i-1].Start.Before(b.Start) {
				t.Fatalf("%s: buckets not ascending", interval)
			}
			if !Floor(b.Start, interval).Equal(b.Start) {
				t.Fatalf("%s: bucket start %s not on a boundary", interval, b.Start)
			}
			total += b.SampleCount
		}
		if total != len(txs) {
			t.Fatalf("%s: buckets hold %d samples, want %d", interval, total, len(txs))
		}
	}

	hourly := BucketTransactions(txs, Hourly)
	if len(hourly) != 4 {
		t.Fatalf("expected 4 hourly buckets (no interpolation), got %d", len(hourly))
	}
	daily := BucketTransactions(txs, Daily)
	if len(daily) != 2 || daily[0].SampleCount != 3 || daily[1].SampleCount != 2 {
		t.Fatalf("unexpected daily buckets %+v", daily)
	}
}

func TestFloorKeepsLocation(t *testing.T) {
	beirut := time.FixedZone("EET", 2*60*60)
	ts := time.Date(2024, 1, 2, 1, 30, 12, 500, beirut)
	if got := Floor(ts, Daily); !got.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, beirut)) {
		t.Fatalf("daily floor = %s", got)
	}
	if got := Floor(ts, Hourly); !got.Equal(time.Date(2024, 1, 2, 1, 0, 0, 0, beirut)) {
		t.Fatalf("hourly floor = %s", got)
	}
}

func TestParseInterval(t *testing.T) {
	if v, err := ParseInterval("Hourly"); err != nil || v != Hourly {
		t.Fatalf("ParseInterval(Hourly) = %q, %v", v, err)
	}
	if _, err := ParseInterval("weekly"); err == nil {
		t.Fatal("weekly must be rejected")
	}
}

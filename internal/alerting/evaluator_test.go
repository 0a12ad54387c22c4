package alerting

import (
	"testing"

	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

func alert(id int64, dir storage.Direction, cmp storage.Comparison, threshold int64) storage.Alert {
	return storage.Alert{ID: id, UserID: 7, Direction: dir, Comparison: cmp, Threshold: decimal.NewFromInt(threshold)}
}

func ratesOf(usdToLBP, lbpToUSD string) rates.CurrentRates {
	var c rates.CurrentRates
	if usdToLBP != "" {
		r := decimal.RequireFromString(usdToLBP)
		c.USDToLBP = &r
	}
	if lbpToUSD != "" {
		r := decimal.RequireFromString(lbpToUSD)
		c.LBPToUSD = &r
	}
	return c
}

func TestTriggeredIsStrict(t *testing.T) {
	cases := []struct {
		cmp  storage.Comparison
		rate string
		want bool
	}{
		{storage.ComparisonAbove, "90000", false},
		{storage.ComparisonAbove, "90000.0001", true},
		{storage.ComparisonAbove, "89999", false},
		{storage.ComparisonBelow, "90000", false},
		{storage.ComparisonBelow, "89999.9999", true},
		{storage.ComparisonBelow, "95000", false},
	}
	for _, tc := range cases {
		a := alert(1, storage.DirectionUSDToLBP, tc.cmp, 90000)
		if got := Triggered(a, decimal.RequireFromString(tc.rate)); got != tc.want {
			t.Fatalf("%s %s: got %v, want %v", tc.cmp, tc.rate, got, tc.want)
		}
	}
}

func TestEvaluatePartitions(t *testing.T) {
	alerts := []storage.Alert{
		alert(1, storage.DirectionUSDToLBP, storage.ComparisonAbove, 89000),
		alert(2, storage.DirectionUSDToLBP, storage.ComparisonAbove, 90000),
		alert(3, storage.DirectionLBPToUSD, storage.ComparisonBelow, 95000),
		alert(4, storage.DirectionUSDToLBP, storage.ComparisonBelow, 91000),
	}
	ev := Evaluate(alerts, ratesOf("90000", "89500.12345"))

	if len(ev.Triggered) != 3 || len(ev.Untriggered) != 1 {
		t.Fatalf("triggered=%d untriggered=%d", len(ev.Triggered), len(ev.Untriggered))
	}
	if ev.Triggered[0].ID != 1 || ev.Triggered[1].ID != 3 || ev.Triggered[2].ID != 4 {
		t.Fatalf("order not preserved: %+v", ev.Triggered)
	}
	if ev.Untriggered[0].ID != 2 {
		t.Fatalf("untriggered = %+v", ev.Untriggered)
	}
	if ev.Triggered[1].CurrentRate.String() != "89500.1235" {
		t.Fatalf("current rate = %s", ev.Triggered[1].CurrentRate)
	}
}

func TestEvaluateSkipsDirectionWithoutRate(t *testing.T) {
	alerts := []storage.Alert{
		alert(1, storage.DirectionUSDToLBP, storage.ComparisonAbove, 1),
		alert(2, storage.DirectionLBPToUSD, storage.ComparisonAbove, 1),
	}
	ev := Evaluate(alerts, ratesOf("", "90000"))
	if len(ev.Triggered) != 1 || ev.Triggered[0].ID != 2 || len(ev.Untriggered) != 0 {
		t.Fatalf("unexpected evaluation %+v", ev)
	}

	empty := Evaluate(alerts, rates.CurrentRates{})
	if empty.Triggered == nil || empty.Untriggered == nil {
		t.Fatal("lists must be non-nil for JSON output")
	}
}

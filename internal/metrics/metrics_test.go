package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTransactionAcceptedCountsOutliers(t *testing.T) {
	before := testutil.ToFloat64(outliersTotal.WithLabelValues("lbp_to_usd"))
	TransactionAccepted("lbp_to_usd", "internal", true)
	TransactionAccepted("lbp_to_usd", "internal", false)

	if got := testutil.ToFloat64(outliersTotal.WithLabelValues("lbp_to_usd")) - before; got != 1 {
		t.Fatalf("outliers delta = %v", got)
	}
}

func TestNotificationsDispatched(t *testing.T) {
	before := testutil.ToFloat64(notificationsTotal.WithLabelValues("failed"))
	NotificationsDispatched(2, 1)
	if got := testutil.ToFloat64(notificationsTotal.WithLabelValues("failed")) - before; got != 1 {
		t.Fatalf("failed delta = %v", got)
	}
}

func TestRequest(t *testing.T) {
	Request("/health", "GET", "200", time.Millisecond)
	if got := testutil.ToFloat64(requestsTotal.WithLabelValues("/health", "GET", "200")); got < 1 {
		t.Fatalf("requests = %v", got)
	}
}

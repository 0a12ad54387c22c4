package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

func sampleDigest() Digest {
	return Digest{
		GeneratedAt: time.Date(2024, 7, 4, 12, 0, 0, 0, time.Local),
		Window:      72 * time.Hour,
		Stats: map[storage.Direction]*rates.Statistics{
			storage.DirectionUSDToLBP: {
				Count:             3,
				AverageRate:       decimal.NewFromInt(90000),
				MinRate:           decimal.NewFromInt(89000),
				MaxRate:           decimal.NewFromInt(91000),
				PercentageChange:  decimal.RequireFromString("2.2472"),
				VolatilityPercent: decimal.RequireFromString("2.2222"),
			},
		},
		Outliers: 1,
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id = %#v", received)
	}
	if !strings.Contains(received["text"], "avg 90000.00") {
		t.Fatalf("text missing average: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleDigest()); err == nil {
		t.Fatal("expected error for ok=false")
	}
}

func TestTelegramNotifierStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleDigest()); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestRenderDigest(t *testing.T) {
	text := RenderDigest(sampleDigest())
	for _, want := range []string{
		"usd_to_lbp: avg 90000.00 (min 89000.00, max 91000.00), change 2.25%, volatility 2.22%, n=3",
		"lbp_to_usd: no transactions",
		"Outliers excluded: 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("digest missing %q:\n%s", want, text)
		}
	}
}

func TestEmailNotifier(t *testing.T) {
	var sent *email.Email
	var addr string
	n := NewEmailNotifier(EmailOptions{Host: "smtp.local", Port: 2525, From: "bot@local", To: []string{"ops@local"}}, testLogger())
	n.send = func(e *email.Email, a string, auth smtp.Auth) error {
		sent, addr = e, a
		if auth != nil {
			t.Fatal("auth must be nil without username")
		}
		return nil
	}

	if err := n.Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if addr != "smtp.local:2525" {
		t.Fatalf("addr = %s", addr)
	}
	if sent == nil || !strings.Contains(string(sent.Text), "USD/LBP Rate Digest") {
		t.Fatalf("unexpected email %+v", sent)
	}
}

func TestEmailNotifierRequiresRecipients(t *testing.T) {
	n := NewEmailNotifier(EmailOptions{Host: "smtp.local", Port: 25}, testLogger())
	if err := n.Notify(context.Background(), sampleDigest()); err == nil {
		t.Fatal("expected error without recipients")
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(context.Context, Digest) error {
	s.calls++
	return s.err
}

func TestMultiNotifierContinuesAfterFailure(t *testing.T) {
	failing := &stubNotifier{err: errors.New("down")}
	ok := &stubNotifier{}
	err := MultiNotifier{failing, ok}.Notify(context.Background(), sampleDigest())
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("err = %v", err)
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Fatalf("calls = %d, %d", failing.calls, ok.calls)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMemoryListTransactionsFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	user := int64(7)

	seed := []Transaction{
		{USDAmount: decimal.NewFromInt(1), LBPAmount: decimal.NewFromInt(89000), Direction: DirectionUSDToLBP, AddedAt: base.Add(2 * time.Hour)},
		{USDAmount: decimal.NewFromInt(1), LBPAmount: decimal.NewFromInt(90000), Direction: DirectionUSDToLBP, AddedAt: base, UserID: &user},
		{USDAmount: decimal.NewFromInt(1), LBPAmount: decimal.NewFromInt(95000), Direction: DirectionLBPToUSD, AddedAt: base.Add(time.Hour)},
		{USDAmount: decimal.NewFromInt(1), LBPAmount: decimal.NewFromInt(500000), Direction: DirectionUSDToLBP, AddedAt: base.Add(time.Hour), IsOutlier: true},
	}
	for _, tx := range seed {
		if _, err := m.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	dir := DirectionUSDToLBP
	got, err := m.ListTransactions(ctx, TransactionFilter{Direction: &dir, ExcludeOutliers: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if !got[0].AddedAt.Equal(base) {
		t.Fatalf("expected ascending order, first at %s", got[0].AddedAt)
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(2 * time.Hour)
	got, _ = m.ListTransactions(ctx, TransactionFilter{From: &from, To: &to, Descending: true})
	if len(got) != 3 {
		t.Fatalf("expected 3 transactions in range, got %d", len(got))
	}
	if !got[0].AddedAt.Equal(to) {
		t.Fatalf("expected descending order, first at %s", got[0].AddedAt)
	}

	count, _ := m.CountTransactions(ctx, TransactionFilter{UserID: &user})
	if count != 1 {
		t.Fatalf("expected 1 transaction for user, got %d", count)
	}
}

func TestMemoryNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, _ := m.InsertNotification(ctx, Notification{UserID: 1, Title: "a", CreatedAt: time.Now()})
	_, _ = m.InsertNotification(ctx, Notification{UserID: 1, Title: "b", CreatedAt: time.Now()})
	_, _ = m.InsertNotification(ctx, Notification{UserID: 2, Title: "c", CreatedAt: time.Now()})

	if unread, _ := m.CountUnread(ctx, 1); unread != 2 {
		t.Fatalf("expected 2 unread, got %d", unread)
	}
	if err := m.MarkNotificationRead(ctx, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if unread, _ := m.CountUnread(ctx, 1); unread != 1 {
		t.Fatalf("expected 1 unread, got %d", unread)
	}
	if err := m.MarkNotificationRead(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.DeleteNotificationsForUser(ctx, 1); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if list, _ := m.ListNotifications(ctx, 1); len(list) != 0 {
		t.Fatalf("expected no notifications for user 1, got %d", len(list))
	}
	if list, _ := m.ListNotifications(ctx, 2); len(list) != 1 {
		t.Fatalf("notifications of user 2 must survive, got %d", len(list))
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"usd_to_lbp": DirectionUSDToLBP,
		"LBP_TO_USD": DirectionLBPToUSD,
		"true":       DirectionUSDToLBP,
		"false":      DirectionLBPToUSD,
	}
	for in, want := range cases {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Fatalf("ParseDirection(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("eur_to_lbp"); err == nil {
		t.Fatal("unknown direction must be rejected")
	}
	if _, err := ParseComparison("equal"); err == nil {
		t.Fatal("unknown comparison must be rejected")
	}
}

func TestMigrationNamesOrdered(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("migration names: %v", err)
	}
	if len(names) < 3 || names[0] != "migrations/0001_init.sql" || names[2] != "migrations/0003_watchlist.sql" {
		t.Fatalf("unexpected migrations: %v", names)
	}
}

func TestMemoryWatchlist(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	at := time.Date(2024, 7, 1, 9, 0, 0, 0, time.Local)
	target := decimal.NewFromInt(90000)

	older, _ := m.InsertWatchlistItem(ctx, WatchlistItem{UserID: 1, Label: "buy", Direction: DirectionUSDToLBP, TargetRate: &target, CreatedAt: at})
	newer, _ := m.InsertWatchlistItem(ctx, WatchlistItem{UserID: 1, Label: "sell", Direction: DirectionLBPToUSD, CreatedAt: at.Add(time.Hour)})
	_, _ = m.InsertWatchlistItem(ctx, WatchlistItem{UserID: 2, Label: "other", Direction: DirectionUSDToLBP, CreatedAt: at})

	list, err := m.ListWatchlist(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	got, err := m.GetWatchlistItem(ctx, older.ID)
	if err != nil || got.TargetRate == nil || !got.TargetRate.Equal(target) {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if err := m.DeleteWatchlistItem(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetWatchlistItem(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := m.DeleteWatchlistItem(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryDeletePreference(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.DeletePreference(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = m.UpsertPreference(ctx, Preference{UserID: 4, DefaultInterval: "hourly", DefaultTimeRange: 24, DefaultDirection: DirectionUSDToLBP})
	if err := m.DeletePreference(ctx, 4); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetPreference(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("preference must be gone, got %v", err)
	}
}

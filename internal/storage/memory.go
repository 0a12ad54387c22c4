package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Backend. It is used when no database is configured
// and in tests; contents are lost on exit.
type Memory struct {
	mu            sync.RWMutex
	transactions  []Transaction
	alerts        []Alert
	notifications []Notification
	preferences   map[int64]Preference
	watchlist     []WatchlistItem
	nextID        int64

	// FailNotification, when set, makes InsertNotification fail for the
	// returned error.
	FailNotification func(n Notification) error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{preferences: make(map[int64]Preference)}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// InsertTransaction stores tx and assigns its id.
func (m *Memory) InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.ID = m.id()
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

// ListTransactions returns matching transactions ordered by time then id.
func (m *Memory) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	m.mu.RLock()
	out := make([]Transaction, 0)
	for _, tx := range m.transactions {
		if filter.Matches(tx) {
			out = append(out, tx)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	if filter.Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// CountTransactions counts matching transactions.
func (m *Memory) CountTransactions(ctx context.Context, filter TransactionFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, tx := range m.transactions {
		if filter.Matches(tx) {
			n++
		}
	}
	return n, nil
}

// InsertAlert stores alert and assigns its id.
func (m *Memory) InsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert.ID = m.id()
	m.alerts = append(m.alerts, alert)
	return alert, nil
}

// ListAlerts returns matching alerts, newest first.
func (m *Memory) ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	m.mu.RLock()
	out := make([]Alert, 0)
	for _, a := range m.alerts {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetAlert loads an alert by id.
func (m *Memory) GetAlert(ctx context.Context, id int64) (Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return Alert{}, ErrNotFound
}

// DeleteAlert removes an alert by id.
func (m *Memory) DeleteAlert(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// InsertNotification stores n and assigns its id.
func (m *Memory) InsertNotification(ctx context.Context, n Notification) (Notification, error) {
	if m.FailNotification != nil {
		if err := m.FailNotification(n); err != nil {
			return Notification{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.id()
	m.notifications = append(m.notifications, n)
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
func (m *Memory) ListNotifications(ctx context.Context, userID int64) ([]Notification, error) {
	m.mu.RLock()
	out := make([]Notification, 0)
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetNotification loads a notification by id.
func (m *Memory) GetNotification(ctx context.Context, id int64) (Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return Notification{}, ErrNotFound
}

// CountUnread counts a user's unread notifications.
func (m *Memory) CountUnread(ctx context.Context, userID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkNotificationRead flags a notification as read.
func (m *Memory) MarkNotificationRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

// DeleteNotification removes a notification by id.
func (m *Memory) DeleteNotification(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteNotificationsForUser removes all notifications of a user.
func (m *Memory) DeleteNotificationsForUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.notifications[:0]
	for _, n := range m.notifications {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	m.notifications = kept
	return nil
}

// GetPreference loads a user's preferences.
func (m *Memory) GetPreference(ctx context.Context, userID int64) (Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pref, ok := m.preferences[userID]
	if !ok {
		return Preference{}, ErrNotFound
	}
	return pref, nil
}

// UpsertPreference replaces a user's preferences.
func (m *Memory) UpsertPreference(ctx context.Context, pref Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[pref.UserID] = pref
	return nil
}

// DeletePreference removes a user's preferences.
func (m *Memory) DeletePreference(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.preferences[userID]; !ok {
		return ErrNotFound
	}
	delete(m.preferences, userID)
	return nil
}

// InsertWatchlistItem stores item and assigns its id.
func (m *Memory) InsertWatchlistItem(ctx context.Context, item WatchlistItem) (WatchlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.id()
	m.watchlist = append(m.watchlist, item)
	return item, nil
}

// ListWatchlist lists a user's watchlist, newest first.
func (m *Memory) ListWatchlist(ctx context.Context, userID int64) ([]WatchlistItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WatchlistItem, 0)
	for _, item := range m.watchlist {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetWatchlistItem loads a single watchlist entry.
func (m *Memory) GetWatchlistItem(ctx context.Context, id int64) (WatchlistItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.watchlist {
		if item.ID == id {
			return item, nil
		}
	}
	return WatchlistItem{}, ErrNotFound
}

// DeleteWatchlistItem removes a watchlist entry.
func (m *Memory) DeleteWatchlistItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.watchlist {
		if item.ID == id {
			m.watchlist = append(m.watchlist[:i], m.watchlist[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

var _ Backend = (*Memory)(nil)

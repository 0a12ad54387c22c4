package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound is returned when a record addressed by id does not exist.
	ErrNotFound = errors.New("storage: record not found")
)

const (
	transactionColumns = `id, usd_amount::text, lbp_amount::text, direction, added_at, user_id, source, is_outlier`

	insertTransactionSQL = `INSERT INTO transactions (
        usd_amount,
        lbp_amount,
        direction,
        added_at,
        user_id,
        source,
        is_outlier
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id;`

	insertAlertSQL = `INSERT INTO alerts (
        user_id,
        direction,
        threshold,
        comparison,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id;`

	alertColumns = `id, user_id, direction, threshold::text, comparison, created_at`

	getAlertSQL    = `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1;`
	deleteAlertSQL = `DELETE FROM alerts WHERE id = $1;`

	insertNotificationSQL = `INSERT INTO notifications (
        user_id,
        title,
        message,
        is_read,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id;`

	notificationColumns = `id, user_id, title, message, is_read, created_at`

	listNotificationsSQL = `SELECT ` + notificationColumns + `
    FROM notifications
    WHERE user_id = $1
    ORDER BY created_at DESC, id DESC;`

	getNotificationSQL         = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1;`
	countUnreadSQL             = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE;`
	markNotificationReadSQL    = `UPDATE notifications SET is_read = TRUE WHERE id = $1;`
	deleteNotificationSQL      = `DELETE FROM notifications WHERE id = $1;`
	deleteUserNotificationsSQL = `DELETE FROM notifications WHERE user_id = $1;`

	getPreferenceSQL = `SELECT user_id, default_interval, default_time_range, default_direction, updated_at
    FROM preferences
    WHERE user_id = $1;`

	upsertPreferenceSQL = `INSERT INTO preferences (
        user_id,
        default_interval,
        default_time_range,
        default_direction,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (user_id) DO UPDATE
    SET default_interval   = EXCLUDED.default_interval,
        default_time_range = EXCLUDED.default_time_range,
        default_direction  = EXCLUDED.default_direction,
        updated_at         = EXCLUDED.updated_at;`

	deletePreferenceSQL = `DELETE FROM preferences WHERE user_id = $1;`

	insertWatchlistItemSQL = `INSERT INTO watchlist_items (
        user_id,
        label,
        direction,
        target_rate,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id;`

	watchlistColumns = `id, user_id, label, direction, target_rate::text, created_at`

	listWatchlistSQL = `SELECT ` + watchlistColumns + `
    FROM watchlist_items
    WHERE user_id = $1
    ORDER BY created_at DESC, id DESC;`

	getWatchlistItemSQL    = `SELECT ` + watchlistColumns + ` FROM watchlist_items WHERE id = $1;`
	deleteWatchlistItemSQL = `DELETE FROM watchlist_items WHERE id = $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// TransactionStore persists and scans exchange transactions.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	CountTransactions(ctx context.Context, filter TransactionFilter) (int64, error)
}

// AlertStore persists user threshold alerts.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert Alert) (Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error)
	GetAlert(ctx context.Context, id int64) (Alert, error)
	DeleteAlert(ctx context.Context, id int64) error
}

// NotificationStore persists user notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n Notification) (Notification, error)
	ListNotifications(ctx context.Context, userID int64) ([]Notification, error)
	GetNotification(ctx context.Context, id int64) (Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	DeleteNotification(ctx context.Context, id int64) error
	DeleteNotificationsForUser(ctx context.Context, userID int64) error
}

// PreferenceStore persists per-user query defaults.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID int64) (Preference, error)
	UpsertPreference(ctx context.Context, pref Preference) error
	DeletePreference(ctx context.Context, userID int64) error
}

// WatchlistStore persists the directions users follow.
type WatchlistStore interface {
	InsertWatchlistItem(ctx context.Context, item WatchlistItem) (WatchlistItem, error)
	ListWatchlist(ctx context.Context, userID int64) ([]WatchlistItem, error)
	GetWatchlistItem(ctx context.Context, id int64) (WatchlistItem, error)
	DeleteWatchlistItem(ctx context.Context, id int64) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Backend is the full record store used by the service layer.
type Backend interface {
	TransactionStore
	AlertStore
	NotificationStore
	PreferenceStore
	WatchlistStore
}

// Store is the PostgreSQL implementation of Backend.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// the session lock goes away with the connection if this fails
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertTransaction persists a transaction together with its outlier flag.
func (s *Store) InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	pool, err := s.getPool()
	if err != nil {
		return Transaction{}, err
	}

	var userID interface{}
	if tx.UserID != nil {
		userID = *tx.UserID
	}

	if scanErr := pool.QueryRow(ctx, insertTransactionSQL,
		tx.USDAmount.String(),
		tx.LBPAmount.String(),
		string(tx.Direction),
		tx.AddedAt,
		userID,
		string(tx.Source),
		tx.IsOutlier,
	).Scan(&tx.ID); scanErr != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", scanErr)
	}
	return tx, nil
}

// ListTransactions scans transactions matching filter ordered by time.
func (s *Store) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	where, args := transactionWhere(filter)
	query := "SELECT " + transactionColumns + " FROM transactions" + where
	if filter.Descending {
		query += " ORDER BY added_at DESC, id DESC"
	} else {
		query += " ORDER BY added_at, id"
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list transactions: %w", queryErr)
	}
	defer rows.Close()

	txs := make([]Transaction, 0)
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		txs = append(txs, tx)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return txs, nil
}

// CountTransactions counts transactions matching filter.
func (s *Store) CountTransactions(ctx context.Context, filter TransactionFilter) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	where, args := transactionWhere(filter)
	var count int64
	if scanErr := pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count transactions: %w", scanErr)
	}
	return count, nil
}

func transactionWhere(filter TransactionFilter) (string, []interface{}) {
	conds := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Direction != nil {
		add("direction = $%d", string(*filter.Direction))
	}
	if filter.From != nil {
		add("added_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("added_at <= $%d", *filter.To)
	}
	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.ExcludeOutliers {
		conds = append(conds, "is_outlier = FALSE")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// InsertAlert persists a new alert.
func (s *Store) InsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}
	if scanErr := pool.QueryRow(ctx, insertAlertSQL,
		alert.UserID,
		string(alert.Direction),
		alert.Threshold.String(),
		string(alert.Comparison),
		alert.CreatedAt,
	).Scan(&alert.ID); scanErr != nil {
		return Alert{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return alert, nil
}

// ListAlerts lists alerts matching filter, newest first.
func (s *Store) ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Direction != nil {
		args = append(args, string(*filter.Direction))
		conds = append(conds, fmt.Sprintf("direction = $%d", len(args)))
	}
	query := "SELECT " + alertColumns + " FROM alerts"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		alert, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// GetAlert loads a single alert.
func (s *Store) GetAlert(ctx context.Context, id int64) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}
	alert, scanErr := scanAlert(pool.QueryRow(ctx, getAlertSQL, id))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return Alert{}, ErrNotFound
	}
	if scanErr != nil {
		return Alert{}, fmt.Errorf("get alert: %w", scanErr)
	}
	return alert, nil
}

// DeleteAlert removes an alert.
func (s *Store) DeleteAlert(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "delete alert", deleteAlertSQL, id)
}

// InsertNotification persists a notification.
func (s *Store) InsertNotification(ctx context.Context, n Notification) (Notification, error) {
	pool, err := s.getPool()
	if err != nil {
		return Notification{}, err
	}
	if scanErr := pool.QueryRow(ctx, insertNotificationSQL,
		n.UserID,
		n.Title,
		n.Message,
		n.IsRead,
		n.CreatedAt,
	).Scan(&n.ID); scanErr != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", scanErr)
	}
	return n, nil
}

// ListNotifications lists a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]Notification, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listNotificationsSQL, userID)
	if queryErr != nil {
		return nil, fmt.Errorf("list notifications: %w", queryErr)
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, n)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// GetNotification loads a single notification.
func (s *Store) GetNotification(ctx context.Context, id int64) (Notification, error) {
	pool, err := s.getPool()
	if err != nil {
		return Notification{}, err
	}
	n, scanErr := scanNotification(pool.QueryRow(ctx, getNotificationSQL, id))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	if scanErr != nil {
		return Notification{}, fmt.Errorf("get notification: %w", scanErr)
	}
	return n, nil
}

// CountUnread counts unread notifications for a user.
func (s *Store) CountUnread(ctx context.Context, userID int64) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countUnreadSQL, userID).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count unread notifications: %w", scanErr)
	}
	return count, nil
}

// MarkNotificationRead flags a notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "mark notification read", markNotificationReadSQL, id)
}

// DeleteNotification removes a notification.
func (s *Store) DeleteNotification(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "delete notification", deleteNotificationSQL, id)
}

// DeleteNotificationsForUser removes every notification of a user.
func (s *Store) DeleteNotificationsForUser(ctx context.Context, userID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteUserNotificationsSQL, userID); execErr != nil {
		return fmt.Errorf("delete user notifications: %w", execErr)
	}
	return nil
}

// GetPreference loads a user's preferences.
func (s *Store) GetPreference(ctx context.Context, userID int64) (Preference, error) {
	pool, err := s.getPool()
	if err != nil {
		return Preference{}, err
	}
	var (
		pref      Preference
		direction string
	)
	scanErr := pool.QueryRow(ctx, getPreferenceSQL, userID).Scan(
		&pref.UserID,
		&pref.DefaultInterval,
		&pref.DefaultTimeRange,
		&direction,
		&pref.UpdatedAt,
	)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return Preference{}, ErrNotFound
	}
	if scanErr != nil {
		return Preference{}, fmt.Errorf("get preference: %w", scanErr)
	}
	pref.DefaultDirection = Direction(direction)
	pref.UpdatedAt = Local(pref.UpdatedAt)
	return pref, nil
}

// UpsertPreference creates or replaces a user's preferences.
func (s *Store) UpsertPreference(ctx context.Context, pref Preference) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertPreferenceSQL,
		pref.UserID,
		pref.DefaultInterval,
		pref.DefaultTimeRange,
		string(pref.DefaultDirection),
		pref.UpdatedAt,
	); execErr != nil {
		return fmt.Errorf("upsert preference: %w", execErr)
	}
	return nil
}

// DeletePreference removes a user's preferences.
func (s *Store) DeletePreference(ctx context.Context, userID int64) error {
	return s.execAffecting(ctx, "delete preference", deletePreferenceSQL, userID)
}

// InsertWatchlistItem persists a watchlist entry.
func (s *Store) InsertWatchlistItem(ctx context.Context, item WatchlistItem) (WatchlistItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return WatchlistItem{}, err
	}
	var target *string
	if item.TargetRate != nil {
		v := item.TargetRate.String()
		target = &v
	}
	if scanErr := pool.QueryRow(ctx, insertWatchlistItemSQL,
		item.UserID,
		item.Label,
		string(item.Direction),
		target,
		item.CreatedAt,
	).Scan(&item.ID); scanErr != nil {
		return WatchlistItem{}, fmt.Errorf("insert watchlist item: %w", scanErr)
	}
	return item, nil
}

// ListWatchlist lists a user's watchlist, newest first.
func (s *Store) ListWatchlist(ctx context.Context, userID int64) ([]WatchlistItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listWatchlistSQL, userID)
	if queryErr != nil {
		return nil, fmt.Errorf("list watchlist: %w", queryErr)
	}
	defer rows.Close()

	out := make([]WatchlistItem, 0)
	for rows.Next() {
		item, scanErr := scanWatchlistItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// GetWatchlistItem loads a single watchlist entry.
func (s *Store) GetWatchlistItem(ctx context.Context, id int64) (WatchlistItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return WatchlistItem{}, err
	}
	item, scanErr := scanWatchlistItem(pool.QueryRow(ctx, getWatchlistItemSQL, id))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return WatchlistItem{}, ErrNotFound
	}
	if scanErr != nil {
		return WatchlistItem{}, fmt.Errorf("get watchlist item: %w", scanErr)
	}
	return item, nil
}

// DeleteWatchlistItem removes a watchlist entry.
func (s *Store) DeleteWatchlistItem(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "delete watchlist item", deleteWatchlistItemSQL, id)
}

func (s *Store) execAffecting(ctx context.Context, op, query string, args ...interface{}) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, query, args...)
	if execErr != nil {
		return fmt.Errorf("%s: %w", op, execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx        Transaction
		usdStr    string
		lbpStr    string
		direction string
		source    string
		userID    *int64
	)
	if err := row.Scan(
		&tx.ID,
		&usdStr,
		&lbpStr,
		&direction,
		&tx.AddedAt,
		&userID,
		&source,
		&tx.IsOutlier,
	); err != nil {
		return Transaction{}, err
	}

	var err error
	tx.USDAmount, err = decimal.NewFromString(usdStr)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse usd amount: %w", err)
	}
	tx.LBPAmount, err = decimal.NewFromString(lbpStr)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse lbp amount: %w", err)
	}
	tx.Direction = Direction(direction)
	tx.Source = Source(source)
	tx.UserID = userID
	tx.AddedAt = Local(tx.AddedAt)
	return tx, nil
}

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		alert        Alert
		direction    string
		thresholdStr string
		comparison   string
	)
	if err := row.Scan(
		&alert.ID,
		&alert.UserID,
		&direction,
		&thresholdStr,
		&comparison,
		&alert.CreatedAt,
	); err != nil {
		return Alert{}, err
	}

	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil {
		return Alert{}, fmt.Errorf("parse threshold: %w", err)
	}
	alert.Threshold = threshold
	alert.Direction = Direction(direction)
	alert.Comparison = Comparison(comparison)
	alert.CreatedAt = Local(alert.CreatedAt)
	return alert, nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		return Notification{}, err
	}
	n.CreatedAt = Local(n.CreatedAt)
	return n, nil
}

func scanWatchlistItem(row pgx.Row) (WatchlistItem, error) {
	var (
		item      WatchlistItem
		direction string
		target    *string
	)
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Label,
		&direction,
		&target,
		&item.CreatedAt,
	); err != nil {
		return WatchlistItem{}, err
	}

	if target != nil {
		rate, err := decimal.NewFromString(*target)
		if err != nil {
			return WatchlistItem{}, fmt.Errorf("parse target rate: %w", err)
		}
		item.TargetRate = &rate
	}
	item.Direction = Direction(direction)
	item.CreatedAt = Local(item.CreatedAt)
	return item, nil
}

var _ Backend = (*Store)(nil)
var _ AdvisoryLocker = (*Store)(nil)

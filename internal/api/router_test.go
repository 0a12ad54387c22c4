package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lira-rate-alerts/internal/auth"
	"lira-rate-alerts/internal/config"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

type testEnv struct {
	router  *gin.Engine
	store   *storage.Memory
	manager *auth.Manager
}

func newEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Analytics: config.AnalyticsConfig{Window: 72 * time.Hour, OutlierThreshold: 0.5}}
	store := storage.NewMemory()
	svc := service.New(cfg, nil, store, nil, nil, zerolog.Nop())
	manager, err := auth.NewManager("test-secret", "lirawatch", time.Hour, "")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return testEnv{router: NewHandler(svc, manager, zerolog.Nop()).Router(), store: store, manager: manager}
}

func (e testEnv) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, _, err := e.manager.Issue(auth.Identity{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (e testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthSetsRequestID(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestSubmitTransactionAnonymousAndAuthenticated(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"usd_amount": 1, "lbp_amount": 89500, "usd_to_lbp": true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("anonymous status = %d body=%s", rec.Code, rec.Body.String())
	}
	var anon map[string]any
	decode(t, rec, &anon)
	if anon["user_id"] != nil || anon["direction"] != "usd_to_lbp" || anon["is_outlier"] != false {
		t.Fatalf("anonymous tx = %v", anon)
	}

	tok := env.token(t, 7, "USER")
	rec = env.do(t, http.MethodPost, "/api/v1/transactions", tok, map[string]any{"usd_amount": "2", "lbp_amount": "179000", "direction": "usd_to_lbp"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("auth status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/transactions", tok, nil)
	var mine []storage.Transaction
	decode(t, rec, &mine)
	if len(mine) != 1 || mine[0].UserID == nil || *mine[0].UserID != 7 {
		t.Fatalf("own transactions = %+v", mine)
	}
}

func TestSubmitTransactionValidation(t *testing.T) {
	env := newEnv(t)
	cases := []map[string]any{
		{"usd_amount": 0, "lbp_amount": 1, "usd_to_lbp": true},
		{"usd_amount": 1, "lbp_amount": -5, "usd_to_lbp": true},
		{"usd_amount": 1, "lbp_amount": 1},
		{"usd_amount": 1, "lbp_amount": 1, "direction": "sideways"},
	}
	for _, body := range cases {
		if rec := env.do(t, http.MethodPost, "/api/v1/transactions", "", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: status = %d", body, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/api/v1/transactions", "garbage", map[string]any{"usd_amount": 1, "lbp_amount": 1, "usd_to_lbp": true})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("invalid token status = %d", rec.Code)
	}
}

func TestExchangeRateAndAnalytics(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/exchange-rate", "", nil)
	var empty map[string]any
	decode(t, rec, &empty)
	if empty["usd_to_lbp_rate"] != nil || empty["lbp_to_usd_rate"] != nil {
		t.Fatalf("empty rates = %v", empty)
	}

	for _, lbp := range []int{89000, 91000} {
		env.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"usd_amount": 1, "lbp_amount": lbp, "usd_to_lbp": true})
	}

	rec = env.do(t, http.MethodGet, "/api/v1/exchange-rate", "", nil)
	var current map[string]any
	decode(t, rec, &current)
	if current["usd_to_lbp_rate"] != float64(90000) || current["lbp_to_usd_rate"] != nil {
		t.Fatalf("rates = %v", current)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/analytics?usd_to_lbp=true", "", nil)
	var stats map[string]any
	decode(t, rec, &stats)
	if stats["transaction_count"] != float64(2) || stats["max_rate"] != float64(91000) {
		t.Fatalf("analytics = %v", stats)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/analytics?direction=lbp_to_usd", "", nil)
	var none map[string]any
	decode(t, rec, &none)
	if rec.Code != http.StatusOK || none["data"] != nil || none["message"] == nil {
		t.Fatalf("no-data response = %d %v", rec.Code, none)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/analytics?start_date=2024-01-01&end_date=01/02/2024", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/analytics?start_date=01/05/2024&end_date=01/02/2024", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reversed range status = %d", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	env := newEnv(t)
	env.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"usd_amount": 1, "lbp_amount": 89000, "usd_to_lbp": true})

	rec := env.do(t, http.MethodGet, "/api/v1/history?interval=hourly", "", nil)
	var hist map[string]any
	decode(t, rec, &hist)
	data, ok := hist["data"].([]any)
	if !ok || len(data) != 1 || hist["interval"] != "hourly" {
		t.Fatalf("history = %v", hist)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/history?interval=weekly", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad interval status = %d", rec.Code)
	}
}

func TestAlertLifecycleAndNotifications(t *testing.T) {
	env := newEnv(t)
	owner := env.token(t, 1, "USER")
	other := env.token(t, 2, "USER")

	if rec := env.do(t, http.MethodGet, "/api/v1/alerts", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous alerts status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/alerts", owner, map[string]any{"direction": "usd_to_lbp", "threshold": 85000, "comparison": "above"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var alert storage.Alert
	decode(t, rec, &alert)

	rec = env.do(t, http.MethodPost, "/api/v1/alerts", owner, map[string]any{"direction": "usd_to_lbp", "threshold": 85000, "comparison": "equal"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad comparison status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"usd_amount": 1, "lbp_amount": 90000, "usd_to_lbp": true})
	var submitted map[string]any
	decode(t, rec, &submitted)
	if submitted["notifications_created"] != float64(1) {
		t.Fatalf("submit = %v", submitted)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/alerts/check", owner, nil)
	var ev map[string][]map[string]any
	decode(t, rec, &ev)
	if len(ev["triggered_alerts"]) != 1 || ev["triggered_alerts"][0]["current_rate"] != float64(90000) {
		t.Fatalf("check = %v", ev)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/notifications", owner, nil)
	var inbox struct {
		Notifications []storage.Notification `json:"notifications"`
		UnreadCount   int64                  `json:"unread_count"`
	}
	decode(t, rec, &inbox)
	if inbox.UnreadCount != 1 || !strings.Contains(inbox.Notifications[0].Message, "rate is 90000.00") {
		t.Fatalf("inbox = %+v", inbox)
	}

	notePath := "/api/v1/notifications/" + itoa(inbox.Notifications[0].ID)
	if rec := env.do(t, http.MethodPut, notePath+"/read", other, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign mark status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, notePath+"/read", owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("mark status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, notePath, owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete note status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/notifications", owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}

	alertPath := "/api/v1/alerts/" + itoa(alert.ID)
	if rec := env.do(t, http.MethodDelete, alertPath, other, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, alertPath, owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("owner delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, alertPath, owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestPreferences(t *testing.T) {
	env := newEnv(t)
	tok := env.token(t, 3, "USER")

	rec := env.do(t, http.MethodGet, "/api/v1/preferences", tok, nil)
	var pref map[string]any
	decode(t, rec, &pref)
	if pref["is_default"] != true || pref["default_interval"] != "daily" {
		t.Fatalf("default pref = %v", pref)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/preferences", tok, map[string]any{"default_interval": "hourly", "default_usd_to_lbp": false})
	decode(t, rec, &pref)
	if rec.Code != http.StatusOK || pref["default_direction"] != "lbp_to_usd" || pref["default_time_range"] != float64(72) {
		t.Fatalf("updated pref = %d %v", rec.Code, pref)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/preferences", tok, map[string]any{"default_time_range": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid range status = %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	env := newEnv(t)
	admin := env.token(t, 100, auth.DefaultAdminRole)
	user := env.token(t, 5, "USER")

	if rec := env.do(t, http.MethodGet, "/api/v1/admin/reports/transactions", user, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d", rec.Code)
	}

	env.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"usd_amount": 10, "lbp_amount": 895000, "usd_to_lbp": true})
	rec := env.do(t, http.MethodGet, "/api/v1/admin/reports/transactions", admin, nil)
	var report map[string]any
	decode(t, rec, &report)
	if report["total_transactions"] != float64(1) || report["total_usd_volume"] != float64(10) {
		t.Fatalf("report = %v", report)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/admin/notifications", admin, map[string]any{"user_id": 5, "title": "Hello", "message": "Maintenance"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin notify status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/notifications", user, nil)
	var inbox map[string]any
	decode(t, rec, &inbox)
	if inbox["unread_count"] != float64(1) {
		t.Fatalf("inbox = %v", inbox)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/alerts", user, map[string]any{"usd_to_lbp": true, "threshold": 1, "comparison": "above"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create alert status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/admin/users/5/alerts/check", admin, nil)
	var ev map[string][]any
	decode(t, rec, &ev)
	if len(ev["triggered_alerts"]) != 1 {
		t.Fatalf("admin check = %v", ev)
	}
}

func TestWatchlistRoutes(t *testing.T) {
	env := newEnv(t)
	owner := env.token(t, 11, "USER")
	other := env.token(t, 12, "USER")

	if rec := env.do(t, http.MethodGet, "/api/v1/watchlist", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/v1/watchlist", owner, map[string]any{"label": "", "usd_to_lbp": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty label status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/watchlist", owner, map[string]any{"label": "dollars", "usd_to_lbp": false, "target_rate": 90000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body.String())
	}
	var item storage.WatchlistItem
	decode(t, rec, &item)
	if item.Direction != storage.DirectionLBPToUSD || item.TargetRate == nil || item.TargetRate.String() != "90000" {
		t.Fatalf("item = %+v", item)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/watchlist", owner, nil)
	var items []storage.WatchlistItem
	decode(t, rec, &items)
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("items = %+v", items)
	}

	path := "/api/v1/watchlist/" + itoa(item.ID)
	if rec := env.do(t, http.MethodDelete, path, other, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestAdminStatsAndUserAlerts(t *testing.T) {
	env := newEnv(t)
	admin := env.token(t, 100, auth.DefaultAdminRole)
	user := env.token(t, 6, "USER")

	if rec := env.do(t, http.MethodGet, "/api/v1/admin/stats", user, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin stats status = %d", rec.Code)
	}
	env.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"usd_amount": 1, "lbp_amount": 89000, "usd_to_lbp": true})
	env.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"usd_amount": 1, "lbp_amount": 91000, "usd_to_lbp": true})

	rec := env.do(t, http.MethodGet, "/api/v1/admin/stats", admin, nil)
	var stats map[string]any
	decode(t, rec, &stats)
	if stats["total_transactions"] != float64(2) || stats["recent_transactions"] != float64(2) ||
		stats["overall_avg_usd_to_lbp_rate"] != float64(90000) || stats["overall_avg_lbp_to_usd_rate"] != nil {
		t.Fatalf("stats = %v", stats)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/admin/users/6/alerts", admin, map[string]any{"usd_to_lbp": true, "threshold": 95000, "comparison": "above"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var alert storage.Alert
	decode(t, rec, &alert)
	if alert.UserID != 6 {
		t.Fatalf("alert owner = %d", alert.UserID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/alerts", user, nil)
	var own []storage.Alert
	decode(t, rec, &own)
	if len(own) != 1 || own[0].ID != alert.ID {
		t.Fatalf("user alerts = %+v", own)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/admin/users/6/alerts", admin, nil)
	var listed []storage.Alert
	decode(t, rec, &listed)
	if len(listed) != 1 {
		t.Fatalf("admin list = %+v", listed)
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/admin/alerts/"+itoa(alert.ID), admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/admin/users/x/alerts", admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func TestAdminUserPreferences(t *testing.T) {
	env := newEnv(t)
	admin := env.token(t, 100, auth.DefaultAdminRole)
	path := "/api/v1/admin/users/9/preferences"

	rec := env.do(t, http.MethodGet, path, admin, nil)
	var empty map[string]any
	decode(t, rec, &empty)
	if rec.Code != http.StatusOK || empty["message"] != "No preferences set for this user" {
		t.Fatalf("empty = %d %v", rec.Code, empty)
	}
	if rec := env.do(t, http.MethodPut, path, admin, map[string]any{"default_interval": "hourly"}); rec.Code != http.StatusNotFound {
		t.Fatalf("put before create status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, path, admin, map[string]any{"default_interval": "hourly", "default_time_range": 48})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, path, admin, map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate create status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, path, admin, map[string]any{"default_time_range": 8761}); rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized range status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, path, admin, map[string]any{"default_direction": "lbp_to_usd"})
	var pref map[string]any
	decode(t, rec, &pref)
	if rec.Code != http.StatusOK || pref["default_direction"] != "lbp_to_usd" || pref["default_interval"] != "hourly" || pref["default_time_range"] != float64(48) {
		t.Fatalf("replaced = %d %v", rec.Code, pref)
	}

	user := env.token(t, 9, "USER")
	rec = env.do(t, http.MethodGet, "/api/v1/preferences", user, nil)
	decode(t, rec, &pref)
	if pref["is_default"] != false || pref["default_direction"] != "lbp_to_usd" {
		t.Fatalf("user view = %v", pref)
	}

	if rec := env.do(t, http.MethodDelete, path, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Package api exposes the rate engine over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/auth"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/version"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Handler serves the HTTP surface of the service.
type Handler struct {
	svc    *service.Service
	auth   *auth.Manager
	logger zerolog.Logger
}

// NewHandler constructs a Handler. A nil manager rejects every
// authenticated route.
func NewHandler(svc *service.Service, manager *auth.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		auth:   manager,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(h.logger), observe())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/transactions", h.optionalAuth(), h.SubmitTransaction)
		api.GET("/transactions", h.requireAuth(), h.ListTransactions)
		api.GET("/exchange-rate", h.ExchangeRate)
		api.GET("/analytics", h.Analytics)
		api.GET("/history", h.optionalAuth(), h.History)

		alerts := api.Group("/alerts", h.requireAuth())
		{
			alerts.POST("", h.CreateAlert)
			alerts.GET("", h.ListAlerts)
			alerts.GET("/check", h.CheckAlerts)
			alerts.DELETE("/:id", h.DeleteAlert)
		}

		notes := api.Group("/notifications", h.requireAuth())
		{
			notes.GET("", h.ListNotifications)
			notes.PUT("/:id/read", h.MarkNotificationRead)
			notes.DELETE("/:id", h.DeleteNotification)
			notes.DELETE("", h.ClearNotifications)
		}

		watch := api.Group("/watchlist", h.requireAuth())
		{
			watch.POST("", h.AddWatchlistItem)
			watch.GET("", h.ListWatchlist)
			watch.DELETE("/:id", h.RemoveWatchlistItem)
		}

		prefs := api.Group("/preferences", h.requireAuth())
		{
			prefs.GET("", h.GetPreferences)
			prefs.PUT("", h.UpdatePreferences)
		}

		admin := api.Group("/admin", h.requireAuth(), h.requireAdmin())
		{
			admin.GET("/reports/transactions", h.VolumeReport)
			admin.POST("/notifications", h.SendNotification)
			admin.GET("/stats", h.Stats)
			admin.GET("/users/:id/alerts", h.ListUserAlerts)
			admin.POST("/users/:id/alerts", h.CreateUserAlert)
			admin.GET("/users/:id/alerts/check", h.CheckUserAlerts)
			admin.DELETE("/alerts/:id", h.DeleteAlert)
			admin.GET("/users/:id/preferences", h.GetUserPreferences)
			admin.POST("/users/:id/preferences", h.CreateUserPreferences)
			admin.PUT("/users/:id/preferences", h.ReplaceUserPreferences)
			admin.DELETE("/users/:id/preferences", h.DeleteUserPreferences)
		}
	}

	return r
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "lirawatch",
		"version": version.Version,
	})
}

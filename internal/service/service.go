package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/alerting"
	"lira-rate-alerts/internal/config"
	"lira-rate-alerts/internal/fetcher"
	"lira-rate-alerts/internal/outlier"
	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/scheduler"
	"lira-rate-alerts/internal/storage"
)

var (
	// ErrForbidden is returned when the actor may not touch a record.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput wraps every validation failure.
	ErrInvalidInput = errors.New("invalid input")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Actor is the caller on whose behalf an operation runs.
type Actor struct {
	UserID int64
	Admin  bool
}

// Service orchestrates the transaction pipeline, alert management and the
// periodic tick.
type Service struct {
	scheduler  *scheduler.Scheduler
	store      storage.Backend
	locker     storage.AdvisoryLocker
	dispatcher *alerting.Dispatcher
	external   fetcher.ExternalRateFetcher
	digest     alerting.Notifier
	logger     zerolog.Logger
	now        func() time.Time

	window         time.Duration
	threshold      decimal.Decimal
	externalAmount decimal.Decimal
	lockKey        int64
}

// New constructs the service. external and digest may be nil when the
// corresponding feature is disabled.
func New(cfg *config.Config, sched *scheduler.Scheduler, store storage.Backend, external fetcher.ExternalRateFetcher, digest alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := outlier.DefaultThreshold
	if cfg.Analytics.OutlierThreshold > 0 {
		threshold = decimal.NewFromFloat(cfg.Analytics.OutlierThreshold)
	}

	window := cfg.Analytics.Window
	if window <= 0 {
		window = rates.DefaultWindow
	}

	externalAmount := decimal.NewFromInt(100)
	if cfg.External.USDAmount > 0 {
		externalAmount = decimal.NewFromFloat(cfg.External.USDAmount)
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:      sched,
		store:          store,
		locker:         locker,
		dispatcher:     alerting.NewDispatcher(store, logger),
		external:       external,
		digest:         digest,
		logger:         logger.With().Str("component", "service").Logger(),
		now:            time.Now,
		window:         window,
		threshold:      threshold,
		externalAmount: externalAmount,
		lockKey:        cfg.Scheduler.AdvisoryLockKey,
	}
}

// Window returns the configured trailing window width.
func (s *Service) Window() time.Duration {
	return s.window
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// Run begins the aligned tick loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

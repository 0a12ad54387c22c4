package app

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lira-rate-alerts/internal/alerting"
	"lira-rate-alerts/internal/api"
	"lira-rate-alerts/internal/auth"
	"lira-rate-alerts/internal/config"
	"lira-rate-alerts/internal/fetcher"
	"lira-rate-alerts/internal/scheduler"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newExternal() fetcher.ExternalRateFetcher {
	if !a.Config.External.Enabled {
		return nil
	}
	return fetcher.NewExternal(fetcher.ExternalOptions{
		URL:       a.Config.External.URL,
		Timeout:   a.Config.External.RequestTimeout,
		UserAgent: a.Config.External.UserAgent,
	}, a.Logger)
}

func (a *App) newDigest() alerting.Notifier {
	cfg := a.Config.Digest
	if !cfg.Enabled {
		return nil
	}

	var channels alerting.MultiNotifier
	for _, ch := range cfg.Channels {
		switch strings.ToLower(strings.TrimSpace(ch)) {
		case "telegram":
			channels = append(channels, alerting.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Telegram.Timeout, a.Logger))
		case "email":
			channels = append(channels, alerting.NewEmailNotifier(alerting.EmailOptions{
				Host:     cfg.Email.Host,
				Port:     cfg.Email.Port,
				Username: cfg.Email.Username,
				Password: cfg.Email.Password,
				From:     cfg.Email.From,
				To:       cfg.Email.To,
			}, a.Logger))
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}

func (a *App) newAuth() *auth.Manager {
	cfg := a.Config.Auth
	if cfg.Secret == "" {
		a.Logger.Warn().Msg("auth.secret not configured; authenticated routes will reject every request")
		return nil
	}
	manager, err := auth.NewManager(cfg.Secret, cfg.Issuer, cfg.TokenTTL, cfg.AdminRole)
	if err != nil {
		a.Logger.Error().Err(err).Msg("auth manager unavailable")
		return nil
	}
	return manager
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// openBackend returns the Postgres store, or an in-memory store when no DSN
// is configured.
func (a *App) openBackend(ctx context.Context) (storage.Backend, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory store")
		return storage.NewMemory(), func() {}, nil
	}

	if a.Config.Database.AutoMigrate {
		applied, err := store.Migrate(ctx)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		if len(applied) > 0 {
			a.Logger.Info().Strs("migrations", applied).Msg("migrations applied")
		}
	}
	return store, closeStore, nil
}

func (a *App) newScheduler(runNow bool) (*scheduler.Scheduler, error) {
	return scheduler.New(a.schedulerOptions(runNow), a.Logger)
}

func (a *App) schedulerOptions(runNow bool) scheduler.Options {
	return scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: runNow || a.Config.Scheduler.RunImmediately,
	}
}

func (a *App) newService(backend storage.Backend, sched *scheduler.Scheduler) *service.Service {
	return service.New(a.Config, sched, backend, a.newExternal(), a.newDigest(), a.Logger)
}

// ServeOptions configure the serve command.
type ServeOptions struct {
	WithScheduler bool
	RunNow        bool
}

// RunOptions configure the scheduler-only run command.
type RunOptions struct {
	// RunNow processes one tick at startup instead of waiting for the next
	// aligned slot.
	RunNow bool
}

// Serve runs the HTTP API and, when asked, the scheduler alongside it.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, closeBackend, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeBackend()

	var sched *scheduler.Scheduler
	if opts.WithScheduler || a.Config.Scheduler.Enabled {
		if sched, err = a.newScheduler(opts.RunNow); err != nil {
			return err
		}
	}

	svc := a.newService(backend, sched)
	if mode := a.Config.HTTP.Mode; mode != "" {
		gin.SetMode(mode)
	}
	handler := api.NewHandler(svc, a.newAuth(), a.Logger)
	server := api.NewServer(a.Config.HTTP, handler.Router(), a.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	if sched != nil {
		g.Go(func() error { return svc.Run(gctx) })
	}

	a.Logger.Info().Bool("scheduler", sched != nil).Msg("starting lirawatch")
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("lirawatch stopped")
	return nil
}

// Run executes the scheduler loop without the HTTP API.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, closeBackend, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeBackend()

	sched, err := a.newScheduler(opts.RunNow)
	if err != nil {
		return err
	}
	svc := a.newService(backend, sched)

	a.Logger.Info().Msg("starting scheduler")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scheduler terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduler stopped")
	return nil
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("database.dsn not configured; nothing to migrate")
	}
	defer closeStore()
	return store.Migrate(ctx)
}

// ExportOptions hold parameters for exporting the bucketed rate series.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	Interval  string
	Direction string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ImportOptions configure the import job.
type ImportOptions struct {
	Path   string
	Notify bool
	DryRun bool
}

// SimulateOptions carry the rates to evaluate alerts against.
type SimulateOptions struct {
	USDToLBP string
	LBPToUSD string
}

// TokenOptions describe a development token.
type TokenOptions struct {
	UserID int64
	Role   string
}

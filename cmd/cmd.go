package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camp-companion/internal/cache"
	"camp-companion/internal/config"
	"camp-companion/internal/handlers"
	"camp-companion/internal/nominations"
	"camp-companion/internal/notifications"
	"camp-companion/internal/profile"
	"camp-companion/internal/realtime"
	"camp-companion/internal/remote"
	"camp-companion/internal/resources"
	"camp-companion/internal/scores"
	"camp-companion/internal/votes"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Open local persisted cache
	localCache, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Cache.Path).Msg("Failed to open local cache")
	}
	defer localCache.Close()

	// Connect to the remote store
	store, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Remote.Driver).Msg("Failed to connect to remote store")
	}
	defer cleanup()

	// Device profile
	profileMgr := profile.NewManager(localCache)
	prof, err := profileMgr.Ensure(cfg.Profile.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize profile")
	}
	log.Info().Str("user_id", prof.UserID).Str("name", prof.Name).Msg("Profile ready")

	clock := clockwork.NewRealClock()

	// Domain services
	ledger := votes.NewLedger(store, localCache)
	scoreAgg := scores.NewAggregator(store, localCache, clock)
	nomAgg := nominations.NewAggregator(store, localCache, clock)
	notifSvc := notifications.NewService(store, localCache, clock)
	resourceSvc, err := resources.NewService(
		store,
		localCache,
		cfg.AWS.Region,
		cfg.AWS.S3Bucket,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create resource service")
	}

	// Show cached data immediately; the first refresh overwrites it.
	rehydrate(ledger, scoreAgg, nomAgg, notifSvc, resourceSvc, localCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First fetch of each collection, then steady-state polling.
	initialRefresh(ctx, prof.UserID, ledger, scoreAgg, nomAgg, notifSvc, resourceSvc)
	scoreAgg.Sync().StartPolling(ctx, cfg.Sync.TeamsInterval.Std(), remote.Filter{})
	nomAgg.Sync().StartPolling(ctx, cfg.Sync.NominationsInterval.Std(), remote.Filter{})
	notifSvc.Sync().StartPolling(ctx, cfg.Sync.NotificationsInterval.Std(), remote.Filter{})

	// Change notifications supplement polling when enabled
	var subscriber *realtime.Subscriber
	if cfg.Realtime.Enabled {
		subscriber = realtime.NewSubscriber(cfg.Realtime.URL, cfg.Realtime.ReconnectWait.Std())
		wireSubscriber(ctx, subscriber, prof.UserID, ledger, scoreAgg, nomAgg, notifSvc)
		subscriber.Start(ctx)
	}

	// Initialize handlers
	teamHandler := handlers.NewTeamHandler(scoreAgg)
	nomHandler := handlers.NewNominationHandler(nomAgg, ledger, profileMgr)
	resourceHandler := handlers.NewResourceHandler(resourceSvc)
	notifHandler := handlers.NewNotificationHandler(notifSvc)
	appHandler := handlers.NewAppHandler(profileMgr, scoreAgg, nomAgg, notifSvc, resourceSvc, ledger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/teams", teamHandler.GetTeams)
		r.Get("/teams/{team_id}", teamHandler.GetTeam)
		r.Post("/teams/refresh", teamHandler.RefreshTeams)
		r.Post("/teams/reset", teamHandler.ResetAllPoints)
		r.Post("/teams/{team_id}/points", teamHandler.AddPoints)
		r.Post("/teams/{team_id}/reset", teamHandler.ResetTeamPoints)

		r.Get("/nominations", nomHandler.GetNominations)
		r.Post("/nominations", nomHandler.SubmitNomination)
		r.Post("/nominations/refresh", nomHandler.RefreshNominations)
		r.Delete("/nominations/{nomination_id}", nomHandler.DeleteNomination)
		r.Post("/nominations/{nomination_id}/vote", nomHandler.Vote)

		r.Get("/votes", nomHandler.GetVotes)
		r.Post("/votes/reset", nomHandler.ResetVotes)
		r.Get("/campers", nomHandler.GetCampers)

		r.Get("/resources", resourceHandler.GetResources)
		r.Post("/resources", resourceHandler.UploadResource)
		r.Post("/resources/refresh", resourceHandler.RefreshResources)
		r.Delete("/resources/{resource_id}", resourceHandler.DeleteResource)

		r.Get("/notifications", notifHandler.GetNotifications)
		r.Post("/notifications/refresh", notifHandler.RefreshNotifications)
		r.Post("/notifications/{notification_id}/read", notifHandler.MarkRead)

		r.Get("/profile", appHandler.GetProfile)
		r.Post("/profile", appHandler.RenameProfile)
		r.Post("/app/foreground", appHandler.Foreground)
		r.Post("/app/background", appHandler.Background)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop pollers and the change feed before the HTTP server
	cancel()
	if subscriber != nil {
		subscriber.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStore connects the configured remote store driver
func openStore(cfg *config.Config) (remote.Store, func(), error) {
	switch cfg.Remote.Driver {
	case "postgres":
		db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := remote.CreateSchema(context.Background(), db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info().Msg("Database connection established")
		return remote.NewPGStore(db), db.Close, nil
	case "http", "":
		store := remote.NewHTTPStore(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.Timeout.Std())
		log.Info().Str("base_url", cfg.Remote.BaseURL).Msg("Using hosted remote store")
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote driver %q", cfg.Remote.Driver)
	}
}

func rehydrate(ledger *votes.Ledger, scoreAgg *scores.Aggregator, nomAgg *nominations.Aggregator, notifSvc *notifications.Service, resourceSvc *resources.Service, c *cache.Cache) {
	if err := ledger.Rehydrate(); err != nil {
		log.Warn().Err(err).Msg("Vote ledger rehydration failed")
	}
	if err := scoreAgg.Rehydrate(c); err != nil {
		log.Warn().Err(err).Msg("Team rehydration failed")
	}
	if err := nomAgg.Rehydrate(c); err != nil {
		log.Warn().Err(err).Msg("Nomination rehydration failed")
	}
	if err := notifSvc.Rehydrate(c); err != nil {
		log.Warn().Err(err).Msg("Notification rehydration failed")
	}
	if err := resourceSvc.Rehydrate(); err != nil {
		log.Warn().Err(err).Msg("Resource rehydration failed")
	}
}

// initialRefresh fetches every collection once in the background. Failures
// are tolerated; cached data keeps serving until a poll tick succeeds.
func initialRefresh(ctx context.Context, userID string, ledger *votes.Ledger, scoreAgg *scores.Aggregator, nomAgg *nominations.Aggregator, notifSvc *notifications.Service, resourceSvc *resources.Service) {
	go func() {
		if _, err := scoreAgg.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial team fetch failed")
		}
	}()
	go func() {
		if _, err := nomAgg.Refresh(ctx, remote.Filter{}); err != nil {
			log.Warn().Err(err).Msg("Initial nomination fetch failed")
		}
		if err := nomAgg.RefreshRoster(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial roster fetch failed")
		}
	}()
	go func() {
		if err := ledger.RefreshVotes(ctx, userID, remote.Filter{}); err != nil {
			log.Warn().Err(err).Msg("Initial vote fetch failed")
		}
	}()
	go func() {
		if _, err := notifSvc.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial notification fetch failed")
		}
	}()
	go func() {
		if _, err := resourceSvc.Refresh(ctx, ""); err != nil {
			log.Warn().Err(err).Msg("Initial resource fetch failed")
		}
	}()
}

// wireSubscriber maps change feed tables onto collection refreshes
func wireSubscriber(ctx context.Context, sub *realtime.Subscriber, userID string, ledger *votes.Ledger, scoreAgg *scores.Aggregator, nomAgg *nominations.Aggregator, notifSvc *notifications.Service) {
	sub.Subscribe("teams", func() {
		if _, err := scoreAgg.Refresh(ctx); err != nil {
			log.Debug().Err(err).Msg("Team refresh from change feed failed")
		}
	})
	sub.Subscribe("nominations", func() {
		if _, err := nomAgg.Refresh(ctx, remote.Filter{}); err != nil {
			log.Debug().Err(err).Msg("Nomination refresh from change feed failed")
		}
	})
	sub.Subscribe("user_votes", func() {
		if err := ledger.RefreshVotes(ctx, userID, remote.Filter{}); err != nil {
			log.Debug().Err(err).Msg("Vote refresh from change feed failed")
		}
	})
	sub.Subscribe("notifications", func() {
		if _, err := notifSvc.Refresh(ctx); err != nil {
			log.Debug().Err(err).Msg("Notification refresh from change feed failed")
		}
	})
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

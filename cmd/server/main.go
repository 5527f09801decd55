package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chanatinart02/next-stock-tracker-app/internal/config"
	"github.com/chanatinart02/next-stock-tracker-app/internal/database"
	"github.com/chanatinart02/next-stock-tracker-app/internal/events"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/ai"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/digest"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/mailer"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/news"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/users"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/watchlist"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/welcome"
	"github.com/chanatinart02/next-stock-tracker-app/internal/scheduler"
	"github.com/chanatinart02/next-stock-tracker-app/internal/server"
	"github.com/chanatinart02/next-stock-tracker-app/internal/workflow"
	"github.com/chanatinart02/next-stock-tracker-app/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Signalist")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Event manager doubles as the engine's failure notifier
	eventMgr := events.NewManager(log)

	// Scheduler drives cron-triggered workflows
	sched := scheduler.New(log)

	// Workflow engine with durable run and step state
	engine := workflow.New(workflow.Config{
		Runs:      workflow.NewSQLiteRunStore(db.Conn(), log),
		Steps:     workflow.NewSQLiteStepStore(db.Conn(), log),
		Scheduler: sched,
		Notifier:  eventMgr,
		Log:       log,
	})

	// Repositories
	userRepo := users.NewRepository(db.Conn(), log)
	watchlistRepo := watchlist.NewRepository(db.Conn(), log)

	// Outbound collaborators
	aiClient := ai.NewClient(cfg.AIServiceURL, cfg.AIAPIKey, cfg.AIModel, log)
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailName,
	}, log)
	newsSource := newsSourceFor(cfg, log)

	// Register workflows
	welcomeWF := welcome.New(aiClient, mail, log)
	digestWF := digest.New(userRepo, watchlistRepo, newsSource, aiClient, mail, cfg.DigestSchedule, log)

	for _, def := range []workflow.Definition{welcomeWF.Definition(), digestWF.Definition()} {
		def := def
		if err := engine.Register(&def); err != nil {
			log.Fatal().Err(err).Str("workflow", def.ID).Msg("Failed to register workflow")
		}
	}

	sched.Start()

	// Pick up runs interrupted by the previous shutdown
	if resumed, err := engine.ResumeInFlight(); err != nil {
		log.Error().Err(err).Msg("Failed to resume in-flight runs")
	} else if resumed > 0 {
		log.Info().Int("count", resumed).Msg("Resumed in-flight runs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		Engine:     engine,
		Users:      userRepo,
		Watchlists: watchlistRepo,
		DevMode:    cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sched.Stop()

	// Let in-flight runs finish; interrupted ones resume on next boot
	if err := engine.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("Shutdown deadline reached with runs still in flight")
	}

	log.Info().Msg("Stopped")
}

// newsSourceFor selects the news backend: the API client when a key is
// configured, the HTML scraper otherwise.
func newsSourceFor(cfg *config.Config, log zerolog.Logger) digest.NewsSource {
	if cfg.NewsAPIKey == "" && cfg.NewsScrapeURL != "" {
		log.Info().Str("url", cfg.NewsScrapeURL).Msg("No news API key, using page scraper")
		return news.NewScraper(cfg.NewsScrapeURL, log)
	}
	return news.NewClient(cfg.NewsAPIURL, cfg.NewsAPIKey, log)
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"nuclight.org/rollcall/internal/bot"
	"nuclight.org/rollcall/internal/config"
	"nuclight.org/rollcall/internal/logger"
	"nuclight.org/rollcall/internal/poll"
	"nuclight.org/rollcall/internal/storage"
	"nuclight.org/rollcall/internal/weather"
)

func main() {
	// .env is optional; real deployments use plain environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.NewLogger()
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Fatalf("Failed to init sentry: %v", err)
		}
		lg = logger.NewLoggerWithSentry()
	}

	lg.Info("config loaded",
		"db_path", cfg.DBPath,
		"settings_path", cfg.SettingsPath,
		"schedule_tz", cfg.ScheduleTZ,
		"history_limit", cfg.HistoryLimit,
	)

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	lg.Info("database initialized")

	historyRepo := storage.NewHistoryRepository(db, cfg.HistoryLimit)

	b, err := bot.New(cfg.BotToken, lg)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	loc := cfg.Location()
	pollService := poll.NewService(settings, historyRepo, b, lg, loc)

	if err := pollService.Recover(); err != nil {
		log.Fatalf("Failed to recover active poll: %v", err)
	}

	var weatherUpdater *weather.Updater
	if cfg.WeatherAPIKey != "" {
		client := weather.NewClient(cfg.WeatherAPIKey, cfg.WeatherLat, cfg.WeatherLon)
		weatherUpdater = weather.NewUpdater(client, b, lg, loc)
	}

	b.Attach(pollService, settings, weatherUpdater)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	evaluator := poll.NewEvaluator(pollService, settings, lg, loc)
	go evaluator.Run(ctx)

	if weatherUpdater != nil {
		go weatherUpdater.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	b.Start()
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kamas-trade/kamasbot/internal/api"
	"github.com/kamas-trade/kamasbot/internal/bot"
	"github.com/kamas-trade/kamasbot/internal/commands"
	"github.com/kamas-trade/kamasbot/internal/config"
	"github.com/kamas-trade/kamasbot/internal/db"
	"github.com/kamas-trade/kamasbot/internal/events"
	"github.com/kamas-trade/kamasbot/internal/events/kafka"
	"github.com/kamas-trade/kamasbot/internal/keylock"
	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/report"
	"github.com/kamas-trade/kamasbot/internal/stock"
	"github.com/kamas-trade/kamasbot/internal/summary"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	log := logger.L()

	// Connect to database
	database, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Per-key locks, shared across replicas when Redis is configured
	var locker keylock.Locker = keylock.NewLocal()
	if cfg.RedisAddr != "" {
		rl := keylock.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rl.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to reach redis at %s: %v", cfg.RedisAddr, err)
		}
		defer rl.Close()
		locker = keylock.Chain{locker, rl}
		log.Infof("Using redis locks at %s", cfg.RedisAddr)
	}

	// Movement events
	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		log.Infof("Publishing movement events to kafka topic %s", cfg.KafkaTopic)
	}

	// Initialize Discord bot
	discordBot, err := bot.New(cfg.DiscordToken)
	if err != nil {
		log.Fatalf("Failed to create discord bot: %v", err)
	}
	session := discordBot.Session()
	summaries := summary.NewPublisher(database, session)

	ledgerSvc := report.NewService(session, summaries, locker, publisher, report.Config{
		JournalChannelID: cfg.DataLogChannelID,
		ReportChannelID:  cfg.DataReportChannelID,
		Location:         cfg.ReportLocation,
		SelfID:           discordBot.SelfID,
	})
	stockSvc := stock.NewService(database, summaries, locker, publisher, stock.Config{
		GlobalChannelID: cfg.StockGlobalChannelID,
		AdminsChannelID: cfg.StockAdminsChannelID,
		Location:        cfg.ReportLocation,
	})

	discordBot.Attach(&commands.Deps{
		Config: cfg,
		Ledger: ledgerSvc,
		Stock:  stockSvc,
	}, cfg.RefreshInterval)

	// Initialize API server
	apiServer := api.New(cfg, ledgerSvc, stockSvc, database, session)

	// Start Discord bot
	if err := discordBot.Start(); err != nil {
		log.Fatalf("Failed to start discord bot: %v", err)
	}
	defer discordBot.Stop()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Errorf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Warnf("API shutdown: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/config"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/handlers"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/i18n"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/middleware"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/ai"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/cache"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/persona"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/session"
	"github.com/MasterHarun/fantastic-octo-fiesta/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting assistant bot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}

	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persona registry with its always-resolvable default, plus any seed file
	registry := persona.NewRegistry(cfg.Personas.DefaultName, cfg.Personas.DefaultPrompt, log)
	if cfg.Personas.SeedPath != "" {
		if err := registry.LoadSeed(cfg.Personas.SeedPath); err != nil {
			log.WithError(err).WithField("path", cfg.Personas.SeedPath).Error("Failed to load persona seed")
			// Continue with the built-in default only
		} else {
			log.WithField("personas", len(registry.List())).Info("Persona seed loaded")
		}
	}

	defaultModel := cfg.DefaultModelProfile()
	sessions := session.NewStore(registry.Default(), models.ModelProfile{
		ID:         defaultModel.ID,
		Name:       defaultModel.Name,
		TokenLimit: defaultModel.TokenLimit,
	}, log)

	provider := ai.NewClient(&cfg.Provider, log)
	cacheService := cache.NewCache(cfg, log)
	rateLimiter := middleware.NewRateLimiter(cfg, log)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	metrics := middleware.NewMetrics()

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	commandHandler := handlers.NewCommandHandler(
		bot,
		cfg,
		provider,
		sessions,
		registry,
		cacheService,
		rateLimiter,
		localizer,
		metrics,
		log,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.UpdateTimeout
	updates := bot.GetUpdatesChan(u)
	log.Info("Using long polling")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for update := range updates {
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			msg := update.Message
			go func() {
				if err := commandHandler.HandleCommand(ctx, msg); err != nil {
					log.WithError(err).WithFields(logrus.Fields{
						"command": msg.Command(),
						"user_id": msg.From.ID,
					}).Error("Failed to handle command")
				}
			}()
		}
	}()

	<-sigChan
	log.Info("Shutdown signal received")

	bot.StopReceivingUpdates()
	cancel()

	// Give in-flight handlers time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}

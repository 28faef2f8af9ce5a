package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	opsHTTP "digi-shop/internal/controller/http"
	"digi-shop/internal/controller/telegram"
	"digi-shop/internal/recovery"
	"digi-shop/internal/repo/persistent"
	"digi-shop/internal/usecase"
	"digi-shop/pkg/cache"
	"digi-shop/pkg/config"
	"digi-shop/pkg/jwt"
	"digi-shop/pkg/logger"
	"digi-shop/pkg/payment"
	"digi-shop/pkg/queue"
)

// Run wires everything and blocks until SIGINT/SIGTERM.
func Run(cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client, queueClient *queue.Client) {
	jwtService := jwt.NewService(cfg.JWTSecret)

	var cacheManager *cache.Manager
	if redisClient != nil {
		cacheManager = cache.NewManager(redisClient, log)
	}

	var invoices *payment.CryptoPayClient
	if cfg.CryptoPayToken != "" {
		invoices = payment.NewCryptoPayClient(cfg.CryptoPayToken)
	}

	// Repositories
	store := persistent.NewLedger(db)

	// Use cases
	settlementUC := usecase.NewSettlementUseCase(store, cacheManager, log)
	purchaseUC := usecase.NewPurchaseUseCase(store, cacheManager, log)
	catalogUC := usecase.NewCatalogUseCase(store, cacheManager, log)
	broadcastUC := usecase.NewBroadcastUseCase(store, queueClient, log)

	// Telegram bot
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("Failed to connect to Telegram: %v", err)
		panic(err)
	}
	bot := telegram.NewBot(api, cfg, settlementUC, purchaseUC, catalogUC, broadcastUC, invoices, redisClient, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bot.Run(ctx)

	if queueClient != nil {
		go func() {
			if err := bot.ConsumeBroadcasts(ctx, queueClient); err != nil && ctx.Err() == nil {
				log.Error("Broadcast consumer stopped: %v", err)
			}
		}()
	}

	// Recovery poller for unconfirmed invoices
	poller := recovery.NewPoller(store, settlementUC, invoices, bot, cfg, log)
	go poller.Run(ctx)

	// Ops API
	opsHandler := opsHTTP.NewOpsHandler(store, cacheManager, queueClient, jwtService, cfg, log)
	router := opsHTTP.NewRouter(opsHandler, jwtService, redisClient, cfg.RateLimitPerMinute)

	srv := &http.Server{
		Addr:    ":" + cfg.OpsPort,
		Handler: router,
	}

	go func() {
		log.Info("Ops API listening on port %s", cfg.OpsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start ops API: %v", err)
			panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Ops API forced to shutdown: %v", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("Error closing database: %v", err)
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis: %v", err)
		}
	}

	if queueClient != nil {
		queueClient.Close()
	}

	log.Info("Bot exited")
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"digi-shop/internal/app"
	"digi-shop/pkg/config"
	"digi-shop/pkg/database"
	"digi-shop/pkg/logger"
	"digi-shop/pkg/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.BotToken == "" {
		panic("BOT_TOKEN must be set")
	}
	if cfg.JWTSecret == "" || cfg.JWTSecret == "your-secret-key-change-in-production" {
		panic("JWT_SECRET must be set in environment variables")
	}

	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Error("Redis unavailable, running without cache and rate limits: %v", err)
		redisClient = nil
	}
	cancel()

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("RabbitMQ unavailable, broadcasts disabled: %v", err)
		queueClient = nil
	}

	app.Run(cfg, log, db, redisClient, queueClient)
}

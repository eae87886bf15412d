package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	_ "fieldtrack/api/docs"
	"fieldtrack/api/internal/config"
	"fieldtrack/api/internal/model"
	"fieldtrack/api/internal/server"
	"fieldtrack/api/internal/service"
)

// @title FieldTrack API
// @version 1.0
// @description FieldTrack - field worker geofence monitoring API

// @host localhost:3000
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	log.Println("[API] Starting FieldTrack API Server...")

	cfg := config.Load()

	// Database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("[API] Failed to connect to database: %v", err)
	}
	log.Println("[API] Connected to database")

	if err := autoMigrate(db); err != nil {
		log.Fatalf("[API] Failed to migrate database: %v", err)
	}
	log.Println("[API] Database migrated")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("[API] Failed to connect to Redis: %v", err)
	}
	log.Println("[API] Connected to Redis")
	defer redisClient.Close()

	// NATS
	natsConn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to NATS: %v", err)
	}
	log.Println("[API] Connected to NATS")
	defer natsConn.Close()

	// JetStream is optional; the engine publishes core NATS either way
	jetstream, err := service.NewJetStreamService(natsConn)
	if err != nil {
		log.Printf("[API] JetStream unavailable, alert replay disabled: %v", err)
	}

	srv := server.NewServer(cfg, db, redisClient, natsConn, jetstream)
	srv.Setup()

	// Notifier persists alerts coming off the bus
	if err := srv.GetNotifier().Start(); err != nil {
		log.Fatalf("[API] Failed to start notifier: %v", err)
	}
	log.Println("[API] Notifier started")

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	go func() {
		if err := srv.Run(addr); err != nil {
			log.Fatalf("[API] Failed to start server: %v", err)
		}
	}()

	log.Printf("[API] Server ready on %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("[API] Shutting down...")

	srv.Shutdown()
	log.Println("[API] Server stopped")
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.LoginLog{},
		&model.Worker{},
		&model.Geofence{},
		&model.GeofenceAssignment{},
		&model.PositionRecord{},
		&model.ViolationRecord{},
		&model.Alert{},
	)
}

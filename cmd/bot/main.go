package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderhub-bot/internal/catalog"
	"orderhub-bot/internal/chat"
	"orderhub-bot/internal/config"
	"orderhub-bot/internal/handler"
	"orderhub-bot/internal/middleware"
	"orderhub-bot/internal/model"
	"orderhub-bot/internal/notify"
	"orderhub-bot/internal/repository"
	"orderhub-bot/internal/router"
	"orderhub-bot/internal/service"
	"orderhub-bot/internal/session"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting OrderHub bot...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Primary store: catalog, orders, feedback, default account roster
	store, err := repository.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	// Account roster backend
	var accountRepo repository.AccountRepository = store
	var mysqlDB *sql.DB
	if cfg.AccountDB.Type == "mysql" {
		mysqlDB, err = sql.Open("mysql", cfg.AccountDB.MySQLDSN())
		if err != nil {
			log.Printf("Warning: MySQL connection failed: %v", err)
		} else {
			mysqlDB.SetMaxOpenConns(10)
			mysqlDB.SetMaxIdleConns(5)
			mysqlDB.SetConnMaxLifetime(5 * time.Minute)

			if err := mysqlDB.Ping(); err != nil {
				log.Printf("Warning: MySQL ping failed, using SQLite roster: %v", err)
				mysqlDB.Close()
				mysqlDB = nil
			} else {
				accountRepo = repository.NewMySQLAccountRepository(mysqlDB)
				log.Println("MySQL account repository initialized")
			}
		}
	}
	if mysqlDB != nil {
		defer mysqlDB.Close()
	}

	// Session store: memory by default, redis for multi-instance
	var sessions session.Store
	if cfg.Session.Store == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddress(),
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Printf("Warning: Redis connection failed, falling back to memory sessions: %v", err)
			sessions = session.NewMemoryStore(cfg.Session.TTL)
		} else {
			sessions = session.NewRedisStore(redisClient, cfg.Session.TTL)
			log.Println("Redis session store initialized")
		}
	} else {
		sessions = session.NewMemoryStore(cfg.Session.TTL)
		log.Println("Memory session store initialized (single-instance mode)")
	}
	defer sessions.Close()

	// Notification sink
	var notifier notify.Sink
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
		log.Printf("Webhook notification sink initialized: %s", cfg.Notify.WebhookURL)
	} else {
		notifier = notify.LogSink{}
		log.Println("No notify webhook configured, logging notifications")
	}

	// Catalog index: build the initial snapshot
	index := catalog.NewIndex(cfg.Chat.FuzzyThreshold)
	fulfillment := service.NewFulfillmentService(
		store, store, index, notifier,
		cfg.Chat.LowStockThreshold, cfg.Notify.AdminRecipient,
	)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := fulfillment.RebuildIndex(ctx); err != nil {
			log.Printf("Warning: initial index build failed: %v", err)
		}
		cancel()
	}
	log.Printf("Catalog index built: %d items", index.Size())

	// Conversation core
	resolver := chat.NewResolver(store, index)
	gate := chat.NewGate(accountRepo)
	engine := chat.NewEngine(sessions, resolver, fulfillment, feedbackRecorder{store}, notifier)

	// Reminder sweep
	var reminder *service.ReminderScheduler
	if cfg.Reminder.Enabled {
		reminder = service.NewReminderScheduler(accountRepo, store, notifier, service.ReminderConfig{
			Interval: cfg.Reminder.Interval,
			Window:   cfg.Reminder.Window,
		})
		reminder.Start()
		defer reminder.Stop()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version)
	chatHandler := handler.NewChatHandler(gate, engine)
	adminHandler := handler.NewAdminHandler(store, store, accountRepo, store, fulfillment)

	// Create auth middleware with injected dependencies (NO GLOBALS!)
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		LoginKey: cfg.App.LoginKey,
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		ChatHandler:    chatHandler,
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

// feedbackRecorder adapts the feedback repository to the conversation
// engine's recorder interface.
type feedbackRecorder struct {
	repo repository.FeedbackRepository
}

func (f feedbackRecorder) Record(ctx context.Context, accountID int64, message string) error {
	return f.repo.InsertFeedback(ctx, &model.Feedback{AccountID: accountID, Message: message})
}

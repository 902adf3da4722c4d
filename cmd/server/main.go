package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lethanhdat107/govivu/internal/api"
	"github.com/lethanhdat107/govivu/internal/auth"
	"github.com/lethanhdat107/govivu/internal/chat"
	"github.com/lethanhdat107/govivu/internal/db"
	"github.com/lethanhdat107/govivu/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to build: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx := context.Background()

	mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		sugar.Fatalw("mongo connect failed", "error", err)
	}
	defer func() {
		if err := mongoStore.Close(context.Background()); err != nil {
			sugar.Warnw("mongo close failed", "error", err)
		}
	}()

	if err := mongoStore.EnsureCollections(ctx, cfg.Chat.CacheWindow); err != nil {
		sugar.Fatalw("mongo ensure collections failed", "error", err)
	}

	authService, err := auth.NewService(cfg.JWTSecret, 24*time.Hour, db.NewUserStore(mongoStore))
	if err != nil {
		sugar.Fatalw("auth service init failed", "error", err)
	}

	chatService := chat.NewService(
		db.NewConversationStore(mongoStore),
		db.NewAnswerStore(mongoStore, cfg.Chat.CacheWindow, cfg.Chat.SimilarityThreshold),
		db.NewTourStore(mongoStore),
		chat.NewOrchestrator(cfg.Providers, cfg.Chat, sugar),
		sugar,
	)

	router := setupRouter(cfg, authService, chatService, sugar)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infow("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server crashed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("graceful shutdown failed", "error", err)
	}

	sugar.Info("server stopped cleanly")
}

func setupRouter(cfg *utils.Config, authService *auth.Service, chatService *chat.Service, logger *zap.SugaredLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api.NewHandler(authService, chatService, logger).RegisterRoutes(router)

	return router
}

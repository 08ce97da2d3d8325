package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/ai"
	"github.com/Chinu7077/Talk-to-Chinu/internal/config"
	"github.com/Chinu7077/Talk-to-Chinu/internal/handler"
	"github.com/Chinu7077/Talk-to-Chinu/internal/identity"
	"github.com/Chinu7077/Talk-to-Chinu/internal/service"
	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	store, kv, err := buildStorage(&cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	defer kv.Close()

	// Identity is resolved once at startup and namespaces the credit
	// counters so users sharing a deployment meter independently.
	resolver := identity.NewResolver(identity.WithLookupURL(cfg.Identity.LookupURL))
	resolveCtx, cancel := context.WithTimeout(context.Background(), cfg.Identity.Timeout)
	creditsKey := resolver.StorageKey(resolveCtx, service.CreditsKeyBase)
	lastResetKey := resolver.StorageKey(resolveCtx, service.LastResetKeyBase)
	cancel()

	creditService := service.NewCreditService(kv, creditsKey, lastResetKey,
		cfg.Credit.DailyLimit, cfg.Credit.ResetInterval, cfg.Credit.TickInterval)
	defer creditService.Stop()

	sessionService := service.NewSessionService(store)
	sessionService.StartCleanup(cfg.Session.TTL, cfg.Session.CleanupInterval)
	defer sessionService.Stop()

	provider, err := ai.NewProvider(&cfg.AI)
	if err != nil {
		logger.Fatalf("Failed to create AI provider: %v", err)
	}

	chatService := service.NewChatService(sessionService, creditService, provider, kv, cfg.AI.Gemini.APIKey)

	chatHandler := handler.NewChatHandler(chatService, sessionService)
	creditHandler := handler.NewCreditHandler(creditService)

	router := setupRouter(cfg, chatHandler, creditHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}

func buildStorage(cfg *config.StorageConfig) (storage.Store, storage.KV, error) {
	switch cfg.Type {
	case "postgres":
		pg, err := storage.NewPostgresStore(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	case "memory":
		return storage.NewMemoryStore(), storage.NewMemoryKV(), nil
	default:
		store, err := storage.NewDiskStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		kv, err := storage.NewDiskKV(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, kv, nil
	}
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, creditHandler *handler.CreditHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	{
		chat := api.Group("/chat")
		{
			chat.POST("/send", chatHandler.Send)
			chat.POST("/session", chatHandler.CreateSession)
			chat.GET("/session/list", chatHandler.GetSessionList)
			chat.GET("/session/current", chatHandler.GetCurrentSession)
			chat.POST("/session/current", chatHandler.SetCurrentSession)
			chat.GET("/session/:session_id", chatHandler.GetSession)
			chat.DELETE("/session/:session_id", chatHandler.DeleteSession)
			chat.POST("/session/:session_id/clear", chatHandler.ClearSession)
			chat.GET("/session/:session_id/export", chatHandler.ExportSession)
			chat.GET("/search", chatHandler.SearchSessions)
		}

		credits := api.Group("/credits")
		{
			credits.GET("", creditHandler.GetCredits)
			credits.POST("/reset", creditHandler.ResetCredits)
		}

		settings := api.Group("/settings")
		{
			settings.PUT("/api-key", chatHandler.SetAPIKey)
		}
	}

	return router
}

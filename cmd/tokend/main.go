package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/config"
	"github.com/croisantti/nutriwhisper-bot/internal/tokend"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Fatal("OPENAI_API_KEY is required")
	}

	srv := &http.Server{
		Addr:         cfg.TokendListenAddr,
		Handler:      tokend.NewServer(cfg, logger).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		logger.Info("token backend listening",
			zap.String("addr", cfg.TokendListenAddr),
			zap.String("model", cfg.RealtimeModel),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("token backend failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

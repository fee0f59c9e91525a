package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Desarso/courserag"
	"github.com/Desarso/courserag/logging"
	"github.com/Desarso/courserag/models/anthropic"
	"github.com/Desarso/courserag/models/gemini"
	"github.com/Desarso/courserag/sessions"
	"github.com/Desarso/courserag/stores"
	"github.com/Desarso/courserag/vectorstore"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := courserag.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := logging.NewLoggerWithService("courserag", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server exited")
	}
}

func run(ctx context.Context, cfg *courserag.Config, logger *logrus.Entry) error {
	model, err := newModel(ctx, cfg)
	if err != nil {
		return err
	}

	embedder, err := vectorstore.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDims)
	if err != nil {
		return err
	}
	vcfg := vectorstore.DefaultConfig(cfg.VectorDBURL)
	vcfg.MaxResults = cfg.MaxResults
	courses, err := vectorstore.Open(ctx, vcfg, embedder)
	if err != nil {
		return err
	}
	defer courses.Close()
	if err := courses.EnsureSchema(ctx, cfg.EmbeddingDims); err != nil {
		return err
	}

	storeCfg := stores.NewStoreConfig(cfg.HistoryStore, cfg.HistoryDSN).WithMaxHistory(cfg.MaxHistory)
	for key, value := range cfg.HistoryOptions {
		storeCfg.WithOption(key, value)
	}
	history, err := stores.NewHistoryStore(storeCfg)
	if err != nil {
		return err
	}
	defer history.Close()
	traces, err := stores.NewTraceStoreFor(history)
	if err != nil {
		return err
	}

	rag := courserag.NewRAGSystem(courserag.NewGenerator(model, logger), courses, history, logger)
	if traces != nil {
		rag = rag.WithTraceStore(traces)
	}

	if cfg.SessionTTL > 0 && cfg.PruneSchedule != "" {
		scheduler, err := courserag.NewSessionPruner(history, cfg.SessionTTL, logger).Start(cfg.PruneSchedule)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if !logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := sessions.NewRouter(rag, logger, sessions.RouterOptions{
		StaticDir:       cfg.StaticDir,
		EnableWebSocket: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"provider": cfg.ModelProvider,
			"history":  cfg.HistoryStore,
		}).Info("Course assistant listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newModel(ctx context.Context, cfg *courserag.Config) (courserag.Model, error) {
	if cfg.ModelProvider == courserag.ProviderGemini {
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
}

// Package main provides the entry point for the medichat HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/seon-creator/SSG-EDU-Project/internal/config"
	"github.com/seon-creator/SSG-EDU-Project/internal/db"
	"github.com/seon-creator/SSG-EDU-Project/internal/knowledge"
	"github.com/seon-creator/SSG-EDU-Project/internal/llm"
	"github.com/seon-creator/SSG-EDU-Project/internal/server"
	"github.com/seon-creator/SSG-EDU-Project/internal/service"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("medichat-server starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"chat_model", cfg.ChatModel,
		"embedding_model", cfg.EmbeddingModel,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	dbClient, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(context.Background())
	}()

	// Initialize database schema
	if err := dbClient.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Create LLM components
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	chatModel, err := llm.NewModel(ctx, cfg, cfg.ChatModel)
	if err != nil {
		logger.Error("failed to create chat model", "error", err)
		os.Exit(1)
	}
	titleModel, err := llm.NewModel(ctx, cfg, cfg.TitleModel)
	if err != nil {
		logger.Error("failed to create title model", "error", err)
		os.Exit(1)
	}
	logger.Info("models initialized", "chat", chatModel.Model(), "title", titleModel.Model())

	// Wire services
	retriever := knowledge.NewRetriever(dbClient, embedder, cfg.RetrieveK)
	chatSvc := service.NewChatService(dbClient, retriever, chatModel, titleModel, cfg.GenerateTimeout, cfg.StreamTimeout)
	reportSvc := service.NewReportService(dbClient, titleModel, cfg.GenerateTimeout)

	srv := server.New(cfg.ListenAddr, chatSvc, reportSvc, logger)

	// Run server (blocks until shutdown or listen failure)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

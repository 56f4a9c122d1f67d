package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/auth"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/config"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/knowledge"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/policy"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/repository"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/service"
	server "github.com/EGroupware/EGroupware-chatbot-MCP/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := log.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting chat service",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("database", cfg.DatabaseURL),
		zap.String("knowledge_file", cfg.KnowledgeFile),
		zap.Bool("mock_llm", cfg.MockLLM()),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize audit store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	// Initialize policy engine
	var policyEngine *policy.Engine
	if cfg.PolicyFile != "" {
		policyEngine, err = policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	} else {
		policyEngine, err = policy.NewEngine(ctx, policy.DefaultPolicy)
	}
	if err != nil {
		log.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	// Company knowledge, reloaded when the file changes
	kb := knowledge.NewStore(cfg.KnowledgeFile)
	if err := kb.Watch(ctx); err != nil {
		log.Warn("knowledge file is not watched; edits need a restart", zap.Error(err))
	}

	tokens, err := auth.NewIssuer(cfg.JWTSecretKey, cfg.AccessTokenExpiry)
	if err != nil {
		log.Fatal("failed to initialize token issuer", zap.Error(err))
	}

	// Initialize service
	svc := service.New(cfg, service.Deps{
		Audit:     db,
		Policy:    policyEngine,
		Knowledge: kb,
		Tokens:    tokens,
	})

	stopSweeper, err := svc.StartSessionSweeper(cfg.SessionSweepInterval)
	if err != nil {
		log.Fatal("failed to start session sweeper", zap.Error(err))
	}
	defer stopSweeper()

	e := server.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	log.Info("chat API started", zap.Int("port", cfg.HTTPPort))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down chat service")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("failed to shutdown server gracefully", zap.Error(err))
	}
	stop()

	log.Info("chat service stopped")
}

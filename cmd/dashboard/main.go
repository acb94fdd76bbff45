package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/dashboard"
	"trading-journal-go/internal/database"
	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	l := ledger.New(db, log, ledger.WithStakeReturnOnClose(cfg.Ledger.ReturnStakeOnClose))
	// The dashboard only reads; profiles are created by the journal CLI.
	if p, err := l.CurrentProfile(); err != nil {
		log.Warn("No active profile yet, endpoints answer 404 until one exists", zap.Error(err))
	} else {
		log.Info("Serving profile", zap.String("username", p.Username), zap.String("balance", p.Balance.String()))
	}

	server := dashboard.NewServer(cfg, l, log)
	server.Start()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("Dashboard forced to shutdown", zap.Error(err))
	}
	log.Info("Dashboard stopped")
}

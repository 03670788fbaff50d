package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"shiritori.exe.dev/config"
	"shiritori.exe.dev/srv"
	"shiritori.exe.dev/wordbank"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	bank := wordbank.Default()
	if cfg.WordBankPath != "" {
		bank, err = wordbank.Load(cfg.WordBankPath)
		if err != nil {
			logger.Error("failed to load word bank", "path", cfg.WordBankPath, "error", err)
			os.Exit(1)
		}
	}

	server, err := srv.New(cfg, bank, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, cfg.Addr); err != nil {
		logger.Error("server exited", "error", err)
		server.Close()
		os.Exit(1)
	}
}

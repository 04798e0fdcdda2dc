// Package main is the entry point for the YaMDb API server.
//
// The main package stays small. It reads configuration, builds the logger and
// the mail transport, then hands everything to internal/server.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/RomanK74/api-yamdb/internal/config"
	"github.com/RomanK74/api-yamdb/internal/mail"
	"github.com/RomanK74/api-yamdb/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	logger := cfg.NewLogger(os.Stdout)

	// os.MkdirAll is a no-op when the directory already exists.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	var mailer mail.Sender
	if cfg.SMTPAddr != "" {
		smtp, err := mail.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			logger.Error("invalid SMTP settings", slog.String("error", err.Error()))
			os.Exit(1)
		}
		mailer = smtp
	} else {
		logger.Warn("SMTP_ADDR not set, confirmation codes will be written to the log")
		mailer = mail.NewLogSender(logger)
	}

	srv, err := server.New(cfg, logger, mailer)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// Command createsuperuser creates an administrator account, or promotes an
// existing one, in the database the API server uses.
//
//	createsuperuser -username root -email root@example.com
//
// It reads the same settings as the server (flags, environment, .env) but
// does not need JWT_SECRET.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/config"
	sqliteRepo "github.com/RomanK74/api-yamdb/internal/repository/sqlite"
	"github.com/RomanK74/api-yamdb/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "createsuperuser:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	username := fs.String("username", "", "superuser username (required)")
	email := fs.String("email", "", "superuser email (required)")

	cfg, err := config.LoadWith(fs, args)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	users := service.NewUserService(db.Users(), logger)
	user, created, err := users.CreateSuperuser(context.Background(), *username, *email)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
			for field, msgs := range appErr.Fields {
				for _, msg := range msgs {
					fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
				}
			}
			return errors.New("invalid input")
		}
		return err
	}

	if created {
		fmt.Printf("superuser %q created\n", user.Username)
	} else {
		fmt.Printf("user %q promoted to superuser\n", user.Username)
	}
	return nil
}

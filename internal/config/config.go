// Package config loads runtime settings.
//
// Precedence, highest first: command-line flag, process environment, .env
// file, built-in default. The .env file never overrides a variable that is
// already set in the environment.
//
//	PORT                   -port          8080
//	DB_PATH                -db            data/yamdb.db
//	JWT_SECRET             -jwt-secret    (required, 16+ chars)
//	ACCESS_TOKEN_TTL       -access-ttl    24h
//	REFRESH_TOKEN_TTL      -refresh-ttl   720h
//	CONFIRMATION_CODE_TTL  -code-ttl      24h
//	NOREPLY_EMAIL          -noreply       noreply@yamdb.local
//	SMTP_ADDR              -smtp-addr     (empty: log mail instead of sending)
//	SMTP_USERNAME          -smtp-user
//	SMTP_PASSWORD          -smtp-password
//	AUTH_RATE_LIMIT        -auth-rate     1 (requests per second per IP)
//	AUTH_RATE_BURST        -auth-burst    5
//	LOG_LEVEL              -log-level     info
//	LOG_FORMAT             -log-format    text (or json)
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   int
	DBPath string

	JWTSecret           string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	ConfirmationCodeTTL time.Duration

	NoReplyEmail string
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string

	AuthRateLimit float64
	AuthRateBurst int

	LogLevel  slog.Level
	LogFormat string
}

type setting struct {
	flag, env, def, usage string
	raw                   string
}

var settings = []*setting{
	{flag: "port", env: "PORT", def: "8080", usage: "HTTP listen port"},
	{flag: "db", env: "DB_PATH", def: "data/yamdb.db", usage: "SQLite database path"},
	{flag: "jwt-secret", env: "JWT_SECRET", usage: "token signing secret (prefer env)"},
	{flag: "access-ttl", env: "ACCESS_TOKEN_TTL", def: "24h", usage: "access token lifetime"},
	{flag: "refresh-ttl", env: "REFRESH_TOKEN_TTL", def: "720h", usage: "refresh token lifetime"},
	{flag: "code-ttl", env: "CONFIRMATION_CODE_TTL", def: "24h", usage: "confirmation code lifetime"},
	{flag: "noreply", env: "NOREPLY_EMAIL", def: "noreply@yamdb.local", usage: "sender address for outgoing mail"},
	{flag: "smtp-addr", env: "SMTP_ADDR", usage: "SMTP relay host:port (empty logs mail instead)"},
	{flag: "smtp-user", env: "SMTP_USERNAME", usage: "SMTP username"},
	{flag: "smtp-password", env: "SMTP_PASSWORD", usage: "SMTP password (prefer env)"},
	{flag: "auth-rate", env: "AUTH_RATE_LIMIT", def: "1", usage: "auth requests per second per client"},
	{flag: "auth-burst", env: "AUTH_RATE_BURST", def: "5", usage: "auth request burst per client"},
	{flag: "log-level", env: "LOG_LEVEL", def: "info", usage: "debug, info, warn or error"},
	{flag: "log-format", env: "LOG_FORMAT", def: "text", usage: "text or json"},
}

// Load parses args for the API server and validates the result.
func Load(args []string) (Config, error) {
	cfg, err := LoadWith(flag.NewFlagSet("yamdb", flag.ContinueOnError), args)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadWith registers the shared settings on fs, parses args and resolves every
// value. Commands add their own flags to fs before calling it. Secrets are not
// checked here; call Validate when they are needed.
func LoadWith(fs *flag.FlagSet, args []string) (Config, error) {
	envFile := fs.String("env-file", ".env", "dotenv file to load if present")
	local := make([]*setting, len(settings))
	for i, s := range settings {
		cp := *s
		local[i] = &cp
		fs.StringVar(&cp.raw, cp.flag, "", fmt.Sprintf("%s (env %s)", cp.usage, cp.env))
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading %s: %w", *envFile, err)
	}

	values := make(map[string]string, len(local))
	for _, s := range local {
		v := s.raw
		if v == "" {
			v = os.Getenv(s.env)
		}
		if v == "" {
			v = s.def
		}
		values[s.env] = v
	}

	return build(values)
}

func build(v map[string]string) (Config, error) {
	var (
		cfg  Config
		errs []error
		err  error
	)

	if cfg.Port, err = strconv.Atoi(v["PORT"]); err != nil || cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %q", v["PORT"]))
	}
	cfg.DBPath = v["DB_PATH"]
	cfg.JWTSecret = v["JWT_SECRET"]

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL},
		{"CONFIRMATION_CODE_TTL", &cfg.ConfirmationCodeTTL},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(v[d.key]); err != nil || *d.dst <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s %q", d.key, v[d.key]))
		}
	}

	cfg.NoReplyEmail = v["NOREPLY_EMAIL"]
	cfg.SMTPAddr = v["SMTP_ADDR"]
	cfg.SMTPUsername = v["SMTP_USERNAME"]
	cfg.SMTPPassword = v["SMTP_PASSWORD"]

	if cfg.AuthRateLimit, err = strconv.ParseFloat(v["AUTH_RATE_LIMIT"], 64); err != nil || cfg.AuthRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("invalid AUTH_RATE_LIMIT %q", v["AUTH_RATE_LIMIT"]))
	}
	if cfg.AuthRateBurst, err = strconv.Atoi(v["AUTH_RATE_BURST"]); err != nil || cfg.AuthRateBurst < 1 {
		errs = append(errs, fmt.Errorf("invalid AUTH_RATE_BURST %q", v["AUTH_RATE_BURST"]))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v["LOG_LEVEL"])); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q", v["LOG_LEVEL"]))
	}
	cfg.LogFormat = strings.ToLower(v["LOG_FORMAT"])
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT %q", v["LOG_FORMAT"]))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate checks the settings only the API server needs.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET required (use -jwt-secret or JWT_SECRET env)")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// NewLogger builds the process logger described by LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

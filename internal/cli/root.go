// Package cli implements idbctl, the operator command line for migrations
// and account bootstrap.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	jwttoken "idbcrm/internal/jwt_token"
	partnerService "idbcrm/internal/partners/service"
	partnerStore "idbcrm/internal/partners/store"
	"idbcrm/internal/platform/config"
	"idbcrm/internal/platform/logger"
	"idbcrm/internal/platform/postgres"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Open builds the backend for a command. Tests swap it for an in-memory one.
	Open func(ctx context.Context, opts *RootOptions) (*Backend, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Backend is what the commands operate on.
type Backend struct {
	Config   config.Config
	DB       *sql.DB
	Logger   *slog.Logger
	Store    partnerService.Store
	Partners *partnerService.Service
	Tokens   *jwttoken.JWTService
}

// Close releases the database pool.
func (b *Backend) Close() {
	if b.DB != nil {
		_ = b.DB.Close()
	}
}

// NewRootCommand creates the root idbctl command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Open: OpenBackend})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "idbctl",
		Short:         "Operate the idbcrm backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newCreateAdminCommand(opts))
	cmd.AddCommand(newIssueTokenCommand(opts))
	return cmd
}

// OpenBackend loads configuration from the environment and connects to
// Postgres. Commands refuse to run without DATABASE_URL since in-memory
// state would be lost on exit.
func OpenBackend(ctx context.Context, opts *RootOptions) (*Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New(level)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := partnerStore.NewPostgres(db)
	return &Backend{
		Config: cfg,
		DB:     db,
		Logger: log,
		Store:  store,
		Partners: partnerService.New(store, nil,
			partnerService.WithLogger(log),
			partnerService.WithTx(postgres.NewTxRunner(db, cfg.Database.TxTimeout)),
		),
		Tokens: jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer),
	}, nil
}

// output writes v as JSON or as the preformatted text line.
func output(w io.Writer, format string, text string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

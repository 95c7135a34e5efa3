package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/pkg/config"
	"github.com/noah-isme/caselog-api/pkg/database"
	"github.com/noah-isme/caselog-api/pkg/logger"
)

// app holds what PersistentPreRunE loads for every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the caselog command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "caselog",
		Short: "Emergency case log API",
		Long: `caselog records emergency cases submitted by rescuers and serves the
administrator dashboard: filtering, metrics, selection, deletion and export.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newAdminCommand(a),
		newTokenCommand(a),
	)
	return root
}

// Execute runs the command tree bound to ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) openDatabase(ctx context.Context) (*sqlx.DB, error) {
	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

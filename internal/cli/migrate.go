package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/pkg/database"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			a.logger.Info("schema ready", zap.String("driver", a.cfg.Database.Driver))
			return nil
		},
	}
}

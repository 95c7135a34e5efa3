package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/internal/server"
	"github.com/noah-isme/caselog-api/pkg/cache"
	"github.com/noah-isme/caselog-api/pkg/database"
)

func newServeCommand(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := a.openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if err := database.Migrate(ctx, db); err != nil {
					return err
				}
			}

			redisClient, err := cache.NewRedis(ctx, a.cfg.Redis)
			if err != nil {
				a.logger.Warn("redis unavailable, collection cache disabled", zap.Error(err))
				redisClient = nil
			}
			if redisClient != nil {
				defer redisClient.Close()
			}

			router, err := server.NewRouter(server.Dependencies{
				Config: a.cfg,
				Logger: a.logger,
				DB:     db,
				Redis:  redisClient,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "create missing tables before serving")
	return cmd
}

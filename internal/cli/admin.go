package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/caselog-api/internal/models"
	"github.com/noah-isme/caselog-api/internal/repository"
	"github.com/noah-isme/caselog-api/internal/service"
)

func newAdminCommand(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage dashboard administrators",
	}

	var req models.CreateUserRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			users := service.NewUserService(repository.NewUserRepository(db), nil, a.logger)
			user, err := users.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created administrator %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&req.Username, "username", "", "login name")
	create.Flags().StringVar(&req.Password, "password", "", "password (at least 6 characters)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	admin.AddCommand(create)
	return admin
}

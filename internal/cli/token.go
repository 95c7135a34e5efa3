package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/caselog-api/internal/service"
)

var errSessionInvalid = errors.New("session token is invalid or expired")

func newTokenCommand(a *app) *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue or check dashboard session tokens",
	}

	issue := &cobra.Command{
		Use:   "issue <username>",
		Short: "Print a session token for username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := service.NewSessionTokenCodec(a.cfg.Session.Secret, a.cfg.Session.TTL)
			tok, err := codec.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	check := &cobra.Command{
		Use:   "check <token> <username>",
		Short: "Validate a stored token/username pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := service.NewSessionTokenCodec(a.cfg.Session.Secret, a.cfg.Session.TTL)
			if !codec.Validate(args[0], args[1]) {
				return errSessionInvalid
			}
			user, issuedAt, err := codec.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s issued %s, expires %s\n",
				user, issuedAt.UTC().Format(time.RFC3339), issuedAt.Add(codec.TTL()).UTC().Format(time.RFC3339))
			return nil
		},
	}

	token.AddCommand(issue, check)
	return token
}

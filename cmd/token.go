package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"claimdesk/internal/bootstrap"
	"claimdesk/internal/errs"
	"claimdesk/internal/usecase/claims"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for a user",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *claims.Service) error {
		userID, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		userID = strings.TrimSpace(userID)
		if userID == "" {
			return errors.New("--user is required")
		}

		user, err := svc.GetUser(cmd.Context(), userID)
		if err != nil {
			return errs.Wrap(err, "load user")
		}
		token, expireAt, err := issueActorToken(app.Config.Auth.JWTSecret, user, ttl, time.Now())
		if err != nil {
			return errs.Wrap(err, "issue token")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n# %s (%s) expires %s\n", token, user.Name, user.Role, expireAt.Format(time.RFC3339)); err != nil {
			return errs.Wrap(err, "write token output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("user", "", "User id the token acts as")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

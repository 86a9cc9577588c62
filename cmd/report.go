package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"claimdesk/internal/bootstrap"
	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
	"claimdesk/internal/usecase/claims"
)

var reportCmd = &cobra.Command{
	Use:   "report <claim-id>",
	Short: "Generate the AI 8D report for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		actorID, _ := cmd.Flags().GetString("actor")
		actorID = strings.TrimSpace(actorID)
		if actorID == "" {
			return errors.New("--actor is required")
		}
		claimID := strings.TrimSpace(cmd.Flags().Arg(0))

		actor, err := svc.GetUser(cmd.Context(), actorID)
		if err != nil {
			return errs.Wrap(err, "load actor")
		}
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()), slog.String("claim_id", claimID))
		ctx = logging.WithActor(ctx, actor.ID, string(actor.Role))

		current, err := svc.GetClaim(ctx, claimID)
		if err != nil {
			return errs.Wrap(err, "load claim")
		}
		report, err := svc.GenerateReport(ctx, current)
		if err != nil {
			logging.Error(ctx, "generate report failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "generate report")
		}

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), report); err != nil {
			return errs.Wrap(err, "write report output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("actor", "", "User id requesting the report")
}

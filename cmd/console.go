package cmd

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"claimdesk/internal/bootstrap"
	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
	"claimdesk/internal/usecase/claims"
	"claimdesk/internal/usecase/claimsboard"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the terminal claims board",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *claims.Service) error {
		actorID, _ := cmd.Flags().GetString("actor")
		status, _ := cmd.Flags().GetString("status")
		mineOnly, _ := cmd.Flags().GetBool("mine")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}
		actorID = strings.TrimSpace(actorID)
		if actorID == "" {
			return errors.New("--actor is required")
		}

		actor, err := svc.GetUser(cmd.Context(), actorID)
		if err != nil {
			return errs.Wrap(err, "load actor")
		}
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		ctx = logging.WithActor(ctx, actor.ID, string(actor.Role))

		model := claimsboard.NewBoardModel(ctx, svc, claimsboard.Options{
			Actor:           actor,
			StatusFilter:    status,
			MineOnly:        mineOnly,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run claims console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("actor", "", "User id acting in the console")
	consoleCmd.Flags().String("status", "", "Optional status filter (new|in_progress|pending_customer|completed)")
	consoleCmd.Flags().Bool("mine", false, "Only show claims assigned to the actor")
	consoleCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}

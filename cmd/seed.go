package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"claimdesk/internal/bootstrap"
	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
	"claimdesk/internal/infrastructure/persistence/schema"
	"claimdesk/internal/infrastructure/seed"
	"claimdesk/internal/usecase/claims"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load users and claims from a TOML or YAML seed file",
	Long:  "Load users and claims from a TOML or YAML seed file. Without --file the built-in user directory is loaded. Existing ids are skipped.",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		version, err := app.SchemaVersion(ctx)
		if err != nil {
			return errs.Wrap(err, "read schema version")
		}
		if version == "" {
			return errors.New("database schema is not initialized, run init-db first")
		}

		file, _ := cmd.Flags().GetString("file")
		file = strings.TrimSpace(file)
		doc := seed.DefaultDocument()
		if file != "" {
			doc, err = seed.Load(file)
			if err != nil {
				return errs.Wrap(err, "load seed file")
			}
		}

		now := time.Now().UTC()
		result, err := seed.Apply(ctx, app.UoW, app.Repo, doc, now)
		if err != nil {
			logging.Error(ctx, "seed failed", slog.String("file", file), slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "apply seed")
		}
		if err := app.SetMeta(ctx, schema.SeededAtKey, now.Format(time.RFC3339)); err != nil {
			return errs.Wrap(err, "record seed time")
		}

		logging.Info(ctx, "seed finished",
			slog.Int("users_created", result.UsersCreated),
			slog.Int("claims_created", result.ClaimsCreated),
		)
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"users: %d created, %d skipped\nclaims: %d created, %d skipped\n",
			result.UsersCreated, result.UsersSkipped, result.ClaimsCreated, result.ClaimsSkipped,
		); err != nil {
			return errs.Wrap(err, "write seed output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("file", "", "Seed document (.toml, .yaml or .yml)")
}

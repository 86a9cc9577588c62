package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"claimdesk/internal/bootstrap"
	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
	"claimdesk/internal/usecase/claims"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the claims HTTP API and live notification feed",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}
		secret := strings.TrimSpace(app.Config.Auth.JWTSecret)
		if secret == "" {
			return errors.New("auth.jwt_secret is required to serve the API")
		}

		server := &http.Server{
			Addr: addr,
			Handler: newClaimAPIHandler(svc, claimAPIOptions{
				JWTSecret: secret,
				Feed:      http.HandlerFunc(app.Hub.ServeWS),
				FilesDir:  app.Files.Dir(),
			}),
			ReadHeaderTimeout: app.Config.HTTP.ReadTimeout,
			BaseContext: func(net.Listener) context.Context {
				return ctx
			},
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.ListenAndServe()
		}()
		logging.Info(ctx, "claims api server started", slog.String("addr", addr))

		select {
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "claims api server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve claims api")
			}
			return nil
		case <-sigCtx.Done():
		}

		logging.Info(ctx, "shutting down claims api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown claims api")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr from config)")
}

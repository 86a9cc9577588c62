package notify

import (
	"context"
	"log/slog"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/ports"
)

// LogNotifier writes envelopes to the structured log. Used when no NATS url is configured.
type LogNotifier struct{}

var _ ports.StatusNotifier = LogNotifier{}

func (LogNotifier) NotifyNewClaim(ctx context.Context, c claim.Claim) error {
	logEnvelope(ctx, NewClaimEnvelope(c))
	return nil
}

func (LogNotifier) NotifyStatusChange(ctx context.Context, c claim.Claim, oldStatus claim.Status) error {
	logEnvelope(ctx, StatusChangeEnvelope(c, oldStatus))
	return nil
}

func logEnvelope(ctx context.Context, env Envelope) {
	logging.Info(ctx, "email notification",
		slog.String("component", "notify.log"),
		slog.String("kind", string(env.Kind)),
		slog.String("to", env.ToName),
		slog.String("subject", env.Subject),
		slog.String("body", env.Body),
	)
}

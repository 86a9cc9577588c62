package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

// publisher is the part of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes email envelopes for a mail relay to pick up.
// Subjects are <subject>.new_claim and <subject>.status_change.
type NATSNotifier struct {
	conn    publisher
	subject string
}

var _ ports.StatusNotifier = (*NATSNotifier)(nil)

func ConnectNATS(ctx context.Context, url string) (*nats.Conn, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "notify.nats"))
	conn, err := nats.Connect(url,
		nats.Name("claimdesk"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info(logCtx, "nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	return conn, nil
}

func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	return newNATSNotifier(conn, subject)
}

func newNATSNotifier(conn publisher, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: strings.TrimSuffix(strings.TrimSpace(subject), ".")}
}

func (n *NATSNotifier) NotifyNewClaim(ctx context.Context, c claim.Claim) error {
	return n.publish(ctx, NewClaimEnvelope(c))
}

func (n *NATSNotifier) NotifyStatusChange(ctx context.Context, c claim.Claim, oldStatus claim.Status) error {
	return n.publish(ctx, StatusChangeEnvelope(c, oldStatus))
}

func (n *NATSNotifier) publish(ctx context.Context, env Envelope) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	data, err := json.Marshal(env)
	if err != nil {
		return errs.Wrap(err, "marshal email envelope")
	}
	subject := n.subject + "." + string(env.Kind)
	if err := n.conn.Publish(subject, data); err != nil {
		return errs.Wrapf(err, "publish %s", subject)
	}

	logging.Debug(ctx, "email envelope published",
		slog.String("component", "notify.nats"),
		slog.String("subject", subject),
		slog.String("claim_id", env.ClaimID),
	)
	return nil
}

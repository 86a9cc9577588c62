package ports

import (
	"context"
	"io"

	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
)

// FileStorage stores attachment blobs and hands back a public URL.
type FileStorage interface {
	Upload(ctx context.Context, name string, body io.Reader, folder string) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// ReportGenerator drafts an 8D report for a claim. One request, no streaming.
type ReportGenerator interface {
	Generate(ctx context.Context, c claim.Claim) (string, error)
}

// StatusNotifier is the email sink. Callers ignore its errors beyond logging.
type StatusNotifier interface {
	NotifyNewClaim(ctx context.Context, c claim.Claim) error
	NotifyStatusChange(ctx context.Context, c claim.Claim, oldStatus claim.Status) error
}

// NotificationPublisher fans persisted activity records out to live subscribers.
type NotificationPublisher interface {
	Publish(ctx context.Context, notifications []activity.Notification)
}

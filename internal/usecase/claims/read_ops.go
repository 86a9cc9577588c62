package claims

import (
	"context"
	"errors"
	"log/slog"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

// ListClaims returns claims newest first with people and comments hydrated.
func (s *Service) ListClaims(ctx context.Context, filter ports.ClaimFilter) ([]claim.Claim, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	items, err := s.repo.ListClaims(ctx, filter)
	if err != nil {
		return nil, persistenceError(err, "list claims")
	}
	return items, nil
}

func (s *Service) GetClaim(ctx context.Context, claimID string) (claim.Claim, error) {
	if err := s.checkRead(ctx); err != nil {
		return claim.Claim{}, err
	}
	c, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, ports.ErrClaimNotFound) {
			return claim.Claim{}, errs.WrapKind(err, errs.KindNotFound, "get claim", claimID)
		}
		return claim.Claim{}, persistenceError(err, "get claim")
	}
	return c, nil
}

// ListNotifications returns the activity feed newest first. limit <= 0 means all.
func (s *Service) ListNotifications(ctx context.Context, limit int) ([]activity.Notification, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	items, err := s.repo.ListNotifications(ctx, limit)
	if err != nil {
		return nil, persistenceError(err, "list notifications")
	}
	return items, nil
}

// MarkAllNotificationsRead flips every unread record and reports how many changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	if err := s.checkWrite(ctx); err != nil {
		return 0, err
	}
	var updated int64
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.MarkAllNotificationsRead(txCtx)
		updated = n
		return err
	}); err != nil {
		return 0, persistenceError(err, "mark notifications read")
	}
	logging.Debug(ctx, "notifications marked read", slog.Int64("updated", updated))
	return updated, nil
}

// UnreadCount counts unread records in the feed.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	if err := s.checkRead(ctx); err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnread(ctx)
	if err != nil {
		return 0, persistenceError(err, "count unread notifications")
	}
	return int(count), nil
}

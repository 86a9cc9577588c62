package claims

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

// AddComment appends a trimmed comment and its notification. Any known user may comment.
func (s *Service) AddComment(ctx context.Context, c claim.Claim, text string, actor claim.User) (claim.Claim, error) {
	if err := s.checkWrite(ctx); err != nil {
		return claim.Claim{}, err
	}
	if err := requireActor(actor); err != nil {
		return claim.Claim{}, err
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "claims.comment"), slog.String("claim_id", c.ID))

	text = strings.TrimSpace(text)
	if text == "" {
		return claim.Claim{}, errs.New(errs.KindInvalidInput, "comment text is required", "text")
	}

	now := s.now()
	comment := claim.Comment{
		ID:        s.newID(),
		Author:    actor,
		CreatedAt: now,
		Text:      text,
	}
	record := activity.CommentAdded(c, actor, now)
	record.ID = s.newID()

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateComment(txCtx, c.ID, comment); err != nil {
			return errs.Wrap(err, "insert comment")
		}
		return s.repo.CreateNotification(txCtx, record)
	}); err != nil {
		if errors.Is(err, ports.ErrClaimNotFound) {
			return claim.Claim{}, errs.WrapKind(err, errs.KindNotFound, "add comment")
		}
		return claim.Claim{}, persistenceError(err, "add comment")
	}

	logging.Debug(ctx, "comment added", slog.String("comment_id", comment.ID))
	s.afterWrite(ctx, []activity.Notification{record})

	next := c
	next.Comments = append(append([]claim.Comment{}, c.Comments...), comment)
	return next, nil
}

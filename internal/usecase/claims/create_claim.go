package claims

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/domain/permission"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

// CreateClaim assigns the next id and stores a claim in status New together
// with its creation notification. The assignee is resolved from the user table.
func (s *Service) CreateClaim(ctx context.Context, draft claim.Draft, actor claim.User) (claim.Claim, error) {
	if err := s.checkWrite(ctx); err != nil {
		return claim.Claim{}, err
	}
	if err := requireActor(actor); err != nil {
		return claim.Claim{}, err
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "claims.create"), slog.String("actor_id", actor.ID))

	if !permission.CanCreateClaim(actor) {
		return claim.Claim{}, errs.New(errs.KindPermissionDenied, "role "+string(actor.Role)+" may not create claims")
	}
	if err := draft.Validate(); err != nil {
		return claim.Claim{}, errs.WrapKind(err, errs.KindInvalidInput, "validate draft")
	}

	assignee, err := s.resolveUser(ctx, draft.Assignee.ID, "assignee")
	if err != nil {
		return claim.Claim{}, err
	}
	draft.Assignee = assignee

	now := s.now()
	var created claim.Claim
	var record activity.Notification
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		ordinal, err := s.repo.NextClaimNumber(txCtx)
		if err != nil {
			return errs.Wrap(err, "reserve claim number")
		}
		created = claim.NewFromDraft(draft, claim.FormatID(s.idPrefix, ordinal), actor, now)
		if err := s.repo.CreateClaim(txCtx, created); err != nil {
			return errs.Wrapf(err, "insert claim %s", created.ID)
		}

		record = activity.Created(created, actor, now)
		record.ID = s.newID()
		return s.repo.CreateNotification(txCtx, record)
	}); err != nil {
		return claim.Claim{}, persistenceError(err, "create claim")
	}

	logging.Info(ctx, "claim created", slog.String("claim_id", created.ID), slog.String("assignee_id", created.Assignee.ID))
	s.afterWrite(ctx, []activity.Notification{record})
	if s.notifier != nil {
		notifier := s.notifier
		s.dispatch(ctx, "notify_new_claim", func(taskCtx context.Context) error {
			return notifier.NotifyNewClaim(taskCtx, created)
		})
	}
	return created, nil
}

// resolveUser loads a referenced user. An unknown id is invalid input naming field.
func (s *Service) resolveUser(ctx context.Context, userID string, field string) (claim.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return claim.User{}, errs.New(errs.KindInvalidInput, field+" is required", field)
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return claim.User{}, errs.WrapKind(err, errs.KindInvalidInput, "unknown "+field+" "+userID, field)
		}
		return claim.User{}, errs.WrapKind(err, errs.KindPersistenceFailed, "load "+field)
	}
	return user, nil
}

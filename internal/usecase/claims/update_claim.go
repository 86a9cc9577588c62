package claims

import (
	"context"
	"errors"
	"log/slog"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/domain/permission"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

type UpdateResult struct {
	Claim         claim.Claim
	Notifications []activity.Notification
}

// UpdateClaim applies proposed over old when actor may edit every touched
// group. The claim and its notifications are written in one transaction;
// a denial writes nothing.
func (s *Service) UpdateClaim(ctx context.Context, old claim.Claim, proposed claim.Claim, actor claim.User) (UpdateResult, error) {
	if err := s.checkWrite(ctx); err != nil {
		return UpdateResult{}, err
	}
	if err := requireActor(actor); err != nil {
		return UpdateResult{}, err
	}
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "claims.update"),
		slog.String("actor_id", actor.ID),
		slog.String("claim_id", old.ID),
	)

	if err := claim.CheckIdentity(old, proposed); err != nil {
		return UpdateResult{}, errs.WrapKind(err, errs.KindImmutableField, "check identity")
	}
	if err := proposed.Validate(); err != nil {
		return UpdateResult{}, classifyValidation(err)
	}

	changed := claim.ChangedFields(old, proposed)
	if len(changed) == 0 {
		return UpdateResult{Claim: old}, nil
	}
	if denied := permission.DeniedGroups(actor, old, claim.ChangedGroups(changed)); len(denied) > 0 {
		names := deniedFieldNames(changed, denied)
		logging.Info(ctx, "claim update denied", slog.Any("fields", names))
		return UpdateResult{}, errs.New(errs.KindPermissionDenied, "role "+string(actor.Role)+" may not edit these fields", names...)
	}

	next := proposed
	next.Creator = old.Creator
	next.Comments = old.Comments
	if next.Status != old.Status {
		if err := s.transitions(old.Status, next.Status); err != nil {
			if errors.Is(err, claim.ErrUnknownStatus) {
				return UpdateResult{}, errs.WrapKind(err, errs.KindUnknownStatus, "check transition", claim.FieldStatus.Name())
			}
			return UpdateResult{}, errs.WrapKind(err, errs.KindInvalidInput, "check transition", claim.FieldStatus.Name())
		}
	}
	if next.Assignee.ID != old.Assignee.ID {
		assignee, err := s.resolveUser(ctx, next.Assignee.ID, claim.FieldAssignee.Name())
		if err != nil {
			return UpdateResult{}, err
		}
		next.Assignee = assignee
	}

	batch := activity.Diff(old, next, actor, s.now())
	s.stampNotifications(batch)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateClaim(txCtx, next); err != nil {
			return errs.Wrapf(err, "update claim %s", next.ID)
		}
		return s.createNotificationsTx(txCtx, batch)
	}); err != nil {
		if errors.Is(err, ports.ErrClaimNotFound) {
			return UpdateResult{}, errs.WrapKind(err, errs.KindNotFound, "update claim")
		}
		return UpdateResult{}, persistenceError(err, "update claim")
	}

	logging.Info(ctx, "claim updated", slog.Int("fields", len(changed)), slog.Int("notifications", len(batch)))
	s.afterWrite(ctx, batch)
	if next.Status != old.Status && s.notifier != nil {
		notifier, oldStatus := s.notifier, old.Status
		s.dispatch(ctx, "notify_status_change", func(taskCtx context.Context) error {
			return notifier.NotifyStatusChange(taskCtx, next, oldStatus)
		})
	}
	return UpdateResult{Claim: next, Notifications: batch}, nil
}

func classifyValidation(err error) error {
	switch {
	case errors.Is(err, claim.ErrUnknownStatus):
		return errs.WrapKind(err, errs.KindUnknownStatus, "validate claim", claim.FieldStatus.Name())
	case errors.Is(err, claim.ErrUnknownField):
		return errs.WrapKind(err, errs.KindUnknownField, "validate claim")
	default:
		return errs.WrapKind(err, errs.KindInvalidInput, "validate claim")
	}
}

func deniedFieldNames(changed []claim.Field, denied []claim.Group) []string {
	blocked := make(map[claim.Group]bool, len(denied))
	for _, g := range denied {
		blocked[g] = true
	}
	names := make([]string, 0, len(changed))
	for _, f := range changed {
		if blocked[f.Group()] {
			names = append(names, f.Name())
		}
	}
	return names
}

// ChangeStatus loads the current claim and moves it to status through UpdateClaim.
func (s *Service) ChangeStatus(ctx context.Context, claimID string, status claim.Status, actor claim.User) (UpdateResult, error) {
	old, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return UpdateResult{}, err
	}
	proposed := old
	proposed.Status = status
	return s.UpdateClaim(ctx, old, proposed, actor)
}

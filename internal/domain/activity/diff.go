package activity

import (
	"time"

	"claimdesk/internal/domain/claim"
)

type comparator func(old, next claim.Claim) (Message, bool)

// comparators run in display order.
var comparators = []comparator{
	statusChanged,
	assigneeChanged,
	textUpdated(LabelContainment, func(c claim.Claim) string { return c.ContainmentActions }),
	textUpdated(LabelRootCause, func(c claim.Claim) string { return c.RootCause.RootCause }),
	textUpdated(LabelCorrective, func(c claim.Claim) string { return c.CorrectiveActions }),
	textUpdated(LabelPreventive, func(c claim.Claim) string { return c.PreventiveActions }),
	customerConfirmed,
}

// Diff compares two versions of a claim and returns the notifications the edit produces.
// All records share at as their timestamp and are unread. IDs are left for the caller.
func Diff(old, next claim.Claim, actor claim.User, at time.Time) []Notification {
	var out []Notification
	for _, compare := range comparators {
		msg, fired := compare(old, next)
		if !fired {
			continue
		}
		msg.ActorName = actor.Name
		msg.ClaimID = next.ID
		out = append(out, Notification{
			ClaimID:   next.ID,
			ActorID:   actor.ID,
			Message:   msg,
			CreatedAt: at,
		})
	}
	return out
}

func statusChanged(old, next claim.Claim) (Message, bool) {
	if old.Status == next.Status {
		return Message{}, false
	}
	return Message{Kind: KindStatusChanged, OldValue: old.Status.Label(), NewValue: next.Status.Label()}, true
}

func assigneeChanged(old, next claim.Claim) (Message, bool) {
	if old.Assignee.ID == next.Assignee.ID {
		return Message{}, false
	}
	return Message{Kind: KindAssigneeChanged, TargetName: next.Assignee.Name}, true
}

// textUpdated fires when the value changed to something non-empty. Clearing a field is silent.
func textUpdated(label string, get func(claim.Claim) string) comparator {
	return func(old, next claim.Claim) (Message, bool) {
		before, after := get(old), get(next)
		if before == after || after == "" {
			return Message{}, false
		}
		return Message{Kind: KindFieldUpdated, FieldLabel: label}, true
	}
}

func customerConfirmed(old, next claim.Claim) (Message, bool) {
	if old.CustomerConfirmation || !next.CustomerConfirmation {
		return Message{}, false
	}
	return Message{Kind: KindCustomerConfirmed}, true
}

// Created is the single record emitted when a claim is opened.
func Created(c claim.Claim, actor claim.User, at time.Time) Notification {
	return Notification{
		ClaimID: c.ID,
		ActorID: actor.ID,
		Message: Message{
			Kind:       KindClaimCreated,
			ActorName:  actor.Name,
			ClaimID:    c.ID,
			TargetName: c.Assignee.Name,
		},
		CreatedAt: at,
	}
}

func CommentAdded(c claim.Claim, actor claim.User, at time.Time) Notification {
	return Notification{
		ClaimID:   c.ID,
		ActorID:   actor.ID,
		Message:   Message{Kind: KindCommentAdded, ActorName: actor.Name, ClaimID: c.ID},
		CreatedAt: at,
	}
}

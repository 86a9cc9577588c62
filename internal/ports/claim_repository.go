package ports

import (
	"context"
	"errors"

	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
)

var (
	ErrClaimNotFound = errors.New("claim not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateID   = errors.New("record id already exists")
)

type ClaimFilter struct {
	Status     claim.Status
	AssigneeID string
	Department string
	// Query matches id, customer name, order id or product code.
	Query string
}

type UserRepository interface {
	ListUsers(ctx context.Context) ([]claim.User, error)
	GetUser(ctx context.Context, userID string) (claim.User, error)
	CreateUser(ctx context.Context, user claim.User) error
	UpdateUser(ctx context.Context, user claim.User) error
}

// ClaimReadRepository returns claims with creator, assignee and comments hydrated.
type ClaimReadRepository interface {
	ListClaims(ctx context.Context, filter ClaimFilter) ([]claim.Claim, error)
	GetClaim(ctx context.Context, claimID string) (claim.Claim, error)
	ListComments(ctx context.Context, claimID string) ([]claim.Comment, error)
	// ListNotifications orders newest first; one batch keeps its emission order.
	ListNotifications(ctx context.Context, limit int) ([]activity.Notification, error)
	CountUnread(ctx context.Context) (int64, error)
}

type ClaimRepository interface {
	UserRepository
	ClaimReadRepository
	// NextClaimNumber atomically reserves the next claim ordinal.
	NextClaimNumber(ctx context.Context) (int64, error)
	CreateClaim(ctx context.Context, c claim.Claim) error
	// UpdateClaim overwrites the mutable columns. Comments are only written by CreateComment.
	UpdateClaim(ctx context.Context, c claim.Claim) error
	CreateComment(ctx context.Context, claimID string, comment claim.Comment) error
	CreateNotification(ctx context.Context, n activity.Notification) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
}

package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/domain/permission"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

func (s *Service) ListUsers(ctx context.Context) ([]claim.User, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, persistenceError(err, "list users")
	}
	return users, nil
}

// GetUser resolves a user id; the HTTP layer uses it to load the caller.
func (s *Service) GetUser(ctx context.Context, userID string) (claim.User, error) {
	if err := s.checkRead(ctx); err != nil {
		return claim.User{}, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return claim.User{}, errs.WrapKind(err, errs.KindNotFound, "get user", userID)
		}
		return claim.User{}, persistenceError(err, "get user")
	}
	return user, nil
}

// CreateUser stores a new user. An empty id is generated. Only admins manage users.
func (s *Service) CreateUser(ctx context.Context, user claim.User, actor claim.User) (claim.User, error) {
	user, err := s.prepareUser(ctx, user, actor)
	if err != nil {
		return claim.User{}, err
	}
	if user.ID == "" {
		user.ID = "user-" + s.newID()
	}
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.CreateUser(txCtx, user)
	}); err != nil {
		if errors.Is(err, ports.ErrDuplicateID) {
			return claim.User{}, errs.WrapKind(err, errs.KindInvalidInput, "create user", "id")
		}
		return claim.User{}, persistenceError(err, "create user")
	}
	logging.Info(ctx, "user created", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

// UpdateUser replaces name, email, avatar, role and department. The id is the key and never changes.
func (s *Service) UpdateUser(ctx context.Context, user claim.User, actor claim.User) (claim.User, error) {
	user, err := s.prepareUser(ctx, user, actor)
	if err != nil {
		return claim.User{}, err
	}
	if user.ID == "" {
		return claim.User{}, errs.New(errs.KindInvalidInput, "user id is required", "id")
	}
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpdateUser(txCtx, user)
	}); err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return claim.User{}, errs.WrapKind(err, errs.KindNotFound, "update user", user.ID)
		}
		return claim.User{}, persistenceError(err, "update user")
	}
	s.afterWrite(ctx, nil)
	logging.Info(ctx, "user updated", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

func (s *Service) prepareUser(ctx context.Context, user claim.User, actor claim.User) (claim.User, error) {
	if err := s.checkWrite(ctx); err != nil {
		return claim.User{}, err
	}
	if err := requireActor(actor); err != nil {
		return claim.User{}, err
	}
	if !permission.CanViewSettings(actor) {
		return claim.User{}, errs.New(errs.KindPermissionDenied, "role "+string(actor.Role)+" may not manage users")
	}

	user.ID = strings.TrimSpace(user.ID)
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)
	user.Department = strings.TrimSpace(user.Department)
	if user.Name == "" {
		return claim.User{}, errs.New(errs.KindInvalidInput, "user name is required", "name")
	}
	if !user.Role.Valid() {
		return claim.User{}, errs.New(errs.KindInvalidInput, fmt.Sprintf("unknown role %q", user.Role), "role")
	}
	if user.Department == "" {
		user.Department = claim.DepartmentNone
	}
	return user, nil
}

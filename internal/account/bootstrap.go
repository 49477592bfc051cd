package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/repo"
)

const (
	adminFirstName = "Admin"
	adminLastName  = "User"
)

// EnsureAdminExists creates the bootstrap admin when no admin account exists.
// It is safe to call on every start and from several processes at once: the
// store's unique username decides which insert wins, and the loser re-counts.
// A missing admin password is returned as ErrConfiguration; callers should
// abort startup on it.
func (s *AccountService) EnsureAdminExists(ctx context.Context) error {
	const op = "EnsureAdminExists"
	admins := entity.Filter{Role: entity.RoleAdmin}

	n, err := s.store.Count(ctx, admins)
	if err != nil {
		return s.storeFailure(op, err)
	}
	if n > 0 {
		s.log.Debugw("admin account present", "admins", n)
		return nil
	}
	if s.adminPassword == "" {
		return newErrorMsg(KindConfiguration, op, "DEFAULT_ADMIN_PASSWORD is not set and no admin account exists")
	}
	if len(s.adminPassword) > maxPasswordBytes {
		return newErrorMsg(KindConfiguration, op, fmt.Sprintf("DEFAULT_ADMIN_PASSWORD longer than %d bytes", maxPasswordBytes))
	}

	a, err := s.newAccount(op, CreateAccountInput{
		Username:  s.adminUsername,
		Password:  s.adminPassword,
		FirstName: adminFirstName,
		LastName:  adminLastName,
		Role:      entity.RoleAdmin,
	})
	if err != nil {
		return err
	}

	err = s.store.Create(ctx, a)
	if err == nil {
		s.log.Infow("default admin created", "accountId", a.ID, "username", a.Username)
		return nil
	}
	if !errors.Is(err, repo.ErrDuplicate) {
		return s.storeFailure(op, err, "username", s.adminUsername)
	}

	n, err = s.store.Count(ctx, admins)
	if err != nil {
		return s.storeFailure(op, err)
	}
	if n == 0 {
		return newErrorMsg(KindConfiguration, op,
			fmt.Sprintf("username %q is held by a non-admin account", s.adminUsername))
	}
	s.log.Infow("admin account created by another instance", "username", s.adminUsername)
	return nil
}

// GetDefaultAdmin returns the oldest admin account.
func (s *AccountService) GetDefaultAdmin(ctx context.Context) (*entity.AccountView, error) {
	const op = "GetDefaultAdmin"
	a, err := s.store.FindFirst(ctx, entity.Filter{Role: entity.RoleAdmin})
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	return a.View(), nil
}

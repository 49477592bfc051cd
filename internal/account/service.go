package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/repo"
)

// bcrypt only looks at the first 72 bytes, longer passwords are rejected.
const maxPasswordBytes = 72

// AccountService orchestrates account lifecycle and authentication flows.
// It keeps no state between calls and is safe for concurrent use.
type AccountService struct {
	store  Store
	hasher PasswordHasher
	keys   AccessKeyGenerator
	tokens *TokenIssuer
	log    *zap.SugaredLogger

	adminUsername string
	adminPassword string
	// dummyHash is verified against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewAccountService wires the service. A nil hasher or key generator is
// replaced by the bcrypt and HMAC defaults built from cfg.
func NewAccountService(store Store, hasher PasswordHasher, keys AccessKeyGenerator, tokens *TokenIssuer, cfg Config, logger *zap.SugaredLogger) (*AccountService, error) {
	const op = "NewAccountService"
	if store == nil {
		return nil, newErrorMsg(KindConfiguration, op, "store is required")
	}
	if tokens == nil {
		return nil, newErrorMsg(KindConfiguration, op, "token issuer is required")
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: cfg.BcryptCost}
	}
	if keys == nil {
		k, err := NewHMACKeyGenerator(cfg.AccessKeySecret)
		if err != nil {
			return nil, newErrorMsg(KindConfiguration, op, err.Error())
		}
		keys = k
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	adminUsername := cfg.AdminUsername
	if adminUsername == "" {
		adminUsername = DefaultAdminUsername
	}
	dummy, err := hasher.Hash("pitchfork-timing-equalizer")
	if err != nil {
		return nil, newErrorMsg(KindConfiguration, op, "cannot compute password hash: "+err.Error())
	}
	return &AccountService{
		store:         store,
		hasher:        hasher,
		keys:          keys,
		tokens:        tokens,
		log:           logger,
		adminUsername: adminUsername,
		adminPassword: cfg.AdminPassword,
		dummyHash:     dummy,
	}, nil
}

// NewFromConfig builds the token issuer and default collaborators from cfg.
func NewFromConfig(store Store, cfg Config, logger *zap.SugaredLogger) (*AccountService, error) {
	tokens, err := NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}
	return NewAccountService(store, nil, nil, tokens, cfg, logger)
}

type CreateAccountInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	// Role defaults to entity.RoleUser when empty.
	Role entity.Role
}

// UpdateAccountInput carries optional changes; nil fields are left as they are.
type UpdateAccountInput struct {
	FirstName *string
	LastName  *string
	Role      *entity.Role
	Password  *string
}

// Session is the result of a successful authentication.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *entity.AccountView
}

func validatePassword(op, pw string) error {
	if pw == "" {
		return newErrorMsg(KindInvalidInput, op, "password is required")
	}
	if len(pw) > maxPasswordBytes {
		return newErrorMsg(KindInvalidInput, op, fmt.Sprintf("password longer than %d bytes", maxPasswordBytes))
	}
	return nil
}

// storeFailure translates a store error. Anything other than not-found and
// duplicate is logged here, once, and replaced by ErrStoreUnavailable.
func (s *AccountService) storeFailure(op string, err error, keysAndValues ...any) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newError(KindNotFound, op)
	case errors.Is(err, repo.ErrDuplicate):
		return newError(KindDuplicateAccount, op)
	}
	s.log.Errorw("account store failure", append([]any{"op", op, "err", err}, keysAndValues...)...)
	return newError(KindStoreUnavailable, op)
}

// CreateAccount hashes the password and inserts the account. Uniqueness is
// left to the store's atomic insert; there is no lookup beforehand.
func (s *AccountService) CreateAccount(ctx context.Context, in CreateAccountInput) (*entity.AccountView, error) {
	const op = "CreateAccount"
	if strings.TrimSpace(in.Username) == "" {
		return nil, newErrorMsg(KindInvalidInput, op, "username is required")
	}
	if err := validatePassword(op, in.Password); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = entity.RoleUser
	}
	if !entity.IsValidRole(in.Role) {
		return nil, newErrorMsg(KindInvalidInput, op, fmt.Sprintf("unknown role %q", in.Role))
	}

	a, err := s.newAccount(op, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, s.storeFailure(op, err, "username", in.Username)
	}
	s.log.Infow("account created", "accountId", a.ID, "username", a.Username, "role", a.Role)
	return a.View(), nil
}

func (s *AccountService) newAccount(op string, in CreateAccountInput) (*entity.Account, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Errorw("hash password", "op", op, "err", err)
		return nil, newErrorMsg(KindConfiguration, op, "cannot hash password")
	}
	key, err := s.keys.Generate(in.Username)
	if err != nil {
		s.log.Errorw("generate access key", "op", op, "err", err)
		return nil, newErrorMsg(KindConfiguration, op, "cannot generate access key")
	}
	return &entity.Account{
		Username:   in.Username,
		SecretHash: hash,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Role:       in.Role,
		AccessKey:  key,
		IsActive:   true,
	}, nil
}

// Authenticate checks the password and issues a session token. Unknown
// username and wrong password are reported identically; activation state is
// only revealed once the password has been verified.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	const op = "Authenticate"
	if strings.TrimSpace(username) == "" || password == "" {
		s.hasher.Verify(s.dummyHash, password)
		return nil, newError(KindInvalidCredentials, op)
	}

	a, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, s.storeFailure(op, err, "username", username)
		}
		s.hasher.Verify(s.dummyHash, password)
		return nil, newError(KindInvalidCredentials, op)
	}
	if !s.hasher.Verify(a.SecretHash, password) {
		return nil, newError(KindInvalidCredentials, op)
	}
	if !a.IsActive {
		return nil, newError(KindInactiveAccount, op)
	}

	s.rehashIfNeeded(ctx, a, password)

	token, exp, err := s.tokens.Issue(SessionClaims{AccountID: a.ID, Username: a.Username, Role: a.Role})
	if err != nil {
		s.log.Errorw("sign session token", "accountId", a.ID, "err", err)
		return nil, newErrorMsg(KindConfiguration, op, "cannot sign session token")
	}
	s.log.Infow("account authenticated", "accountId", a.ID, "username", a.Username)
	return &Session{Token: token, ExpiresAt: exp, Account: a.View()}, nil
}

// rehashIfNeeded upgrades a hash made with an outdated cost. Only the hash is
// written, and only if nobody changed it since the lookup. Failure is logged
// and does not affect the login.
func (s *AccountService) rehashIfNeeded(ctx context.Context, a *entity.Account, password string) {
	if !s.hasher.NeedsRehash(a.SecretHash) {
		return
	}
	h, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warnw("rehash password", "accountId", a.ID, "err", err)
		return
	}
	err = s.store.UpdateSecretHash(ctx, a.ID, a.SecretHash, h)
	switch {
	case err == nil:
		a.SecretHash = h
	case errors.Is(err, repo.ErrNotFound):
		s.log.Debugw("skip rehash, account changed concurrently", "accountId", a.ID)
	default:
		s.log.Warnw("store rehashed password", "accountId", a.ID, "err", err)
	}
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	const op = "ChangePassword"
	if err := validatePassword(op, newPassword); err != nil {
		return err
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.storeFailure(op, err, "accountId", id)
	}
	if !s.hasher.Verify(a.SecretHash, oldPassword) {
		return newError(KindInvalidCredentials, op)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.log.Errorw("hash password", "op", op, "err", err)
		return newErrorMsg(KindConfiguration, op, "cannot hash password")
	}
	a.SecretHash = hash
	if err := s.store.Update(ctx, a); err != nil {
		return s.storeFailure(op, err, "accountId", id)
	}
	s.log.Infow("password changed", "accountId", a.ID)
	return nil
}

// UpdateAccount applies the non-nil fields of in. The secret hash is only
// touched when a new password is supplied.
func (s *AccountService) UpdateAccount(ctx context.Context, id string, in UpdateAccountInput) error {
	const op = "UpdateAccount"
	if in.Role != nil && !entity.IsValidRole(*in.Role) {
		return newErrorMsg(KindInvalidInput, op, fmt.Sprintf("unknown role %q", *in.Role))
	}
	if in.Password != nil {
		if err := validatePassword(op, *in.Password); err != nil {
			return err
		}
	}

	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.storeFailure(op, err, "accountId", id)
	}
	if in.FirstName != nil {
		a.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.LastName = *in.LastName
	}
	if in.Role != nil {
		a.Role = *in.Role
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			s.log.Errorw("hash password", "op", op, "err", err)
			return newErrorMsg(KindConfiguration, op, "cannot hash password")
		}
		a.SecretHash = hash
	}
	if err := s.store.Update(ctx, a); err != nil {
		return s.storeFailure(op, err, "accountId", id)
	}
	s.log.Infow("account updated", "accountId", a.ID, "role", a.Role, "passwordChanged", in.Password != nil)
	return nil
}

// DeleteAccount removes the account permanently.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	const op = "DeleteAccount"
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeFailure(op, err, "accountId", id)
	}
	s.log.Infow("account deleted", "accountId", id)
	return nil
}

func (s *AccountService) ActivateAccount(ctx context.Context, id string) error {
	return s.setActive(ctx, "ActivateAccount", id, true)
}

func (s *AccountService) DeactivateAccount(ctx context.Context, id string) error {
	return s.setActive(ctx, "DeactivateAccount", id, false)
}

func (s *AccountService) setActive(ctx context.Context, op, id string, active bool) error {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.storeFailure(op, err, "accountId", id)
	}
	a.IsActive = active
	if err := s.store.Update(ctx, a); err != nil {
		return s.storeFailure(op, err, "accountId", id)
	}
	s.log.Infow("account activation changed", "accountId", id, "active", active)
	return nil
}

// ListAccounts returns all accounts in creation order, without secret hashes
// or access keys.
func (s *AccountService) ListAccounts(ctx context.Context) ([]entity.AccountView, error) {
	const op = "ListAccounts"
	out, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	if out == nil {
		out = []entity.AccountView{}
	}
	return out, nil
}

func (s *AccountService) GetAccountByID(ctx context.Context, id string) (*entity.AccountView, error) {
	const op = "GetAccountByID"
	if id == "" {
		return nil, newError(KindNotFound, op)
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeFailure(op, err, "accountId", id)
	}
	return a.View(), nil
}

func (s *AccountService) GetAccountByAccessKey(ctx context.Context, key string) (*entity.AccountView, error) {
	const op = "GetAccountByAccessKey"
	if key == "" {
		return nil, newError(KindNotFound, op)
	}
	a, err := s.store.FindByAccessKey(ctx, key)
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	return a.View(), nil
}

// VerifyToken checks a session token issued by Authenticate.
func (s *AccountService) VerifyToken(token string) (*SessionClaims, error) {
	return s.tokens.Verify(token)
}

package account

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
)

// Store is the persistence the account core depends on. Implementations must
// enforce username and access key uniqueness atomically inside Create and
// report the errors defined in the repo package.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	FindByAccessKey(ctx context.Context, key string) (*entity.Account, error)
	FindFirst(ctx context.Context, f entity.Filter) (*entity.Account, error)
	Create(ctx context.Context, a *entity.Account) error
	Update(ctx context.Context, a *entity.Account) error
	// UpdateSecretHash replaces only the hash, and only while it still equals
	// oldHash. It reports repo.ErrNotFound otherwise.
	UpdateSecretHash(ctx context.Context, id, oldHash, newHash string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, f entity.Filter) (int, error)
	ListAll(ctx context.Context) ([]entity.AccountView, error)
}

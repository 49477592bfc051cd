package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

const accountColumns = `id, username, secret_hash, first_name, last_name, role, access_key, is_active, created_at, updated_at`

// AccountRepo provides data access for the accounts table using sqlx.
// Uniqueness of username and access_key is enforced by table constraints.
type AccountRepo struct {
	db  *sqlx.DB
	ids *utilities.IDGenerator
}

func NewAccountRepo(db *sqlx.DB, ids *utilities.IDGenerator) *AccountRepo {
	return &AccountRepo{db: db, ids: ids}
}

// Create inserts a new account in one statement. The id is generated here;
// created_at and updated_at come back from the database.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	const q = `INSERT INTO accounts (id, username, secret_hash, first_name, last_name, role, access_key, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`
	id := r.ids.Next()
	row := r.db.QueryRowxContext(ctx, q, id, a.Username, a.SecretHash, a.FirstName, a.LastName, a.Role, a.AccessKey, a.IsActive)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return mapError("create account", err)
	}
	a.ID = id
	return nil
}

// FindByUsername fetches by username (case-sensitive).
func (r *AccountRepo) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1`
	return r.get(ctx, "find account by username", q, username)
}

func (r *AccountRepo) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return r.get(ctx, "find account by id", q, id)
}

func (r *AccountRepo) FindByAccessKey(ctx context.Context, key string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE access_key=$1`
	return r.get(ctx, "find account by access key", q, key)
}

// FindFirst returns the oldest account matching f.
func (r *AccountRepo) FindFirst(ctx context.Context, f entity.Filter) (*entity.Account, error) {
	where, args := filterClause(f)
	q := `SELECT ` + accountColumns + ` FROM accounts` + where + ` ORDER BY created_at, id LIMIT 1`
	return r.get(ctx, "find first account", q, args...)
}

func (r *AccountRepo) get(ctx context.Context, op, q string, args ...any) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, args...); err != nil {
		return nil, mapError(op, err)
	}
	return &a, nil
}

// Update writes the mutable columns and refreshes updated_at. Username and
// access_key are never rewritten.
func (r *AccountRepo) Update(ctx context.Context, a *entity.Account) error {
	const q = `UPDATE accounts SET secret_hash=$2, first_name=$3, last_name=$4, role=$5, is_active=$6, updated_at=NOW()
		WHERE id=$1 RETURNING updated_at`
	row := r.db.QueryRowxContext(ctx, q, a.ID, a.SecretHash, a.FirstName, a.LastName, a.Role, a.IsActive)
	if err := row.Scan(&a.UpdatedAt); err != nil {
		return mapError("update account", err)
	}
	return nil
}

// UpdateSecretHash swaps the hash only while the row still holds oldHash.
// ErrNotFound means the account is gone or its hash has changed meanwhile.
func (r *AccountRepo) UpdateSecretHash(ctx context.Context, id, oldHash, newHash string) error {
	const q = `UPDATE accounts SET secret_hash=$2, updated_at=NOW() WHERE id=$1 AND secret_hash=$3`
	res, err := r.db.ExecContext(ctx, q, id, newHash, oldHash)
	if err != nil {
		return mapError("update secret hash", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("update secret hash", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes the row.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM accounts WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return mapError("delete account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("delete account", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) Count(ctx context.Context, f entity.Filter) (int, error) {
	where, args := filterClause(f)
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM accounts`+where, args...); err != nil {
		return 0, mapError("count accounts", err)
	}
	return n, nil
}

// ListAll returns every account ordered by creation. The projection leaves out
// secret_hash and access_key.
func (r *AccountRepo) ListAll(ctx context.Context) ([]entity.AccountView, error) {
	const q = `SELECT id, username, first_name, last_name, role, is_active, created_at, updated_at
		FROM accounts ORDER BY created_at, id`
	out := []entity.AccountView{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, mapError("list accounts", err)
	}
	return out, nil
}

func filterClause(f entity.Filter) (string, []any) {
	if f.Role == "" {
		return "", nil
	}
	return ` WHERE role=$1`, []any{f.Role}
}

package entity

import "time"

// Role controls what external callers let an account do. The core only looks
// at it when counting administrators.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Account represents a row in the `accounts` table.
type Account struct {
	ID         string    `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	SecretHash string    `db:"secret_hash" json:"-"`
	FirstName  string    `db:"first_name" json:"firstName"`
	LastName   string    `db:"last_name" json:"lastName"`
	Role       Role      `db:"role" json:"role"`
	AccessKey  string    `db:"access_key" json:"accessKey"`
	IsActive   bool      `db:"is_active" json:"isActive"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// AccountView is the projection handed to callers. It never carries the secret hash.
// AccessKey is empty in list results.
type AccountView struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	Role      Role      `db:"role" json:"role"`
	AccessKey string    `db:"access_key" json:"accessKey,omitempty"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (a *Account) View() *AccountView {
	return &AccountView{
		ID:        a.ID,
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
		AccessKey: a.AccessKey,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Filter narrows Count and FindFirst. The zero value matches every account.
type Filter struct {
	Role Role
}

// Matches reports whether a satisfies the filter.
func (f Filter) Matches(a *Account) bool {
	return f.Role == "" || a.Role == f.Role
}

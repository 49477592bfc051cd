package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

type memoryRecord struct {
	account entity.Account
	seq     uint64
}

// MemoryRepo keeps accounts in process memory. Create checks both unique
// indexes and inserts under the same lock, so it behaves like the table
// constraints of AccountRepo.
type MemoryRepo struct {
	mu          sync.RWMutex
	ids         *utilities.IDGenerator
	seq         uint64
	byID        map[string]*memoryRecord
	byUsername  map[string]string
	byAccessKey map[string]string
}

func NewMemoryRepo(ids *utilities.IDGenerator) *MemoryRepo {
	return &MemoryRepo{
		ids:         ids,
		byID:        make(map[string]*memoryRecord),
		byUsername:  make(map[string]string),
		byAccessKey: make(map[string]string),
	}
}

// now mirrors the microsecond precision of timestamptz.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func (r *MemoryRepo) Create(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[a.Username]; ok {
		return ErrDuplicate
	}
	if _, ok := r.byAccessKey[a.AccessKey]; ok {
		return ErrDuplicate
	}
	ts := now()
	a.ID = r.ids.Next()
	a.CreatedAt, a.UpdatedAt = ts, ts

	r.seq++
	r.byID[a.ID] = &memoryRecord{account: *a, seq: r.seq}
	r.byUsername[a.Username] = a.ID
	r.byAccessKey[a.AccessKey] = a.ID
	return nil
}

func (r *MemoryRepo) FindByUsername(_ context.Context, username string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byUsername[username])
}

func (r *MemoryRepo) FindByID(_ context.Context, id string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *MemoryRepo) FindByAccessKey(_ context.Context, key string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byAccessKey[key])
}

// lookup returns a copy; callers must hold the lock.
func (r *MemoryRepo) lookup(id string) (*entity.Account, error) {
	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	a := rec.account
	return &a, nil
}

func (r *MemoryRepo) FindFirst(_ context.Context, f entity.Filter) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var first *memoryRecord
	for _, rec := range r.byID {
		if !f.Matches(&rec.account) {
			continue
		}
		if first == nil || rec.seq < first.seq {
			first = rec
		}
	}
	if first == nil {
		return nil, ErrNotFound
	}
	a := first.account
	return &a, nil
}

// Update stores the mutable fields. updated_at always moves forward, even when
// two writes land within the same clock tick.
func (r *MemoryRepo) Update(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[a.ID]
	if !ok {
		return ErrNotFound
	}
	ts := now()
	if !ts.After(rec.account.UpdatedAt) {
		ts = rec.account.UpdatedAt.Add(time.Microsecond)
	}
	rec.account.SecretHash = a.SecretHash
	rec.account.FirstName = a.FirstName
	rec.account.LastName = a.LastName
	rec.account.Role = a.Role
	rec.account.IsActive = a.IsActive
	rec.account.UpdatedAt = ts
	a.UpdatedAt = ts
	return nil
}

func (r *MemoryRepo) UpdateSecretHash(_ context.Context, id, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.account.SecretHash != oldHash {
		return ErrNotFound
	}
	ts := now()
	if !ts.After(rec.account.UpdatedAt) {
		ts = rec.account.UpdatedAt.Add(time.Microsecond)
	}
	rec.account.SecretHash = newHash
	rec.account.UpdatedAt = ts
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byUsername, rec.account.Username)
	delete(r.byAccessKey, rec.account.AccessKey)
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepo) Count(_ context.Context, f entity.Filter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.byID {
		if f.Matches(&rec.account) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ListAll(_ context.Context) ([]entity.AccountView, error) {
	r.mu.RLock()
	recs := make([]memoryRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		recs = append(recs, *rec)
	}
	r.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]entity.AccountView, 0, len(recs))
	for i := range recs {
		v := recs[i].account.View()
		v.AccessKey = ""
		out = append(out, *v)
	}
	return out, nil
}

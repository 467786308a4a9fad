package memory

import (
	"context"
	"sort"
	"sync"

	accounts "backoffice-ledger/internal/accounts/domain"
)

// Repository is an in-memory chart-of-accounts repository.
type Repository struct {
	mu     sync.RWMutex
	byID   map[string]*accounts.Account
	byCode map[string]string // code -> id
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{
		byID:   make(map[string]*accounts.Account),
		byCode: make(map[string]string),
	}
}

// Get loads an account by id.
func (r *Repository) Get(ctx context.Context, id string) (*accounts.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

// GetByCode loads an account by its human code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*accounts.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

// List returns every account ordered by code.
func (r *Repository) List(ctx context.Context) ([]*accounts.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*accounts.Account, 0, len(r.byID))
	for _, account := range r.byID {
		copied := *account
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Save inserts a new account.
func (r *Repository) Save(ctx context.Context, account *accounts.Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[account.Code]; exists {
		return accounts.ErrDuplicateCode
	}
	copied := *account
	r.byID[copied.ID] = &copied
	r.byCode[copied.Code] = copied.ID
	return nil
}

// Update overwrites an existing account.
func (r *Repository) Update(ctx context.Context, account *accounts.Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[account.ID]
	if !ok {
		return accounts.ErrAccountNotFound
	}
	if existing.Code != account.Code {
		delete(r.byCode, existing.Code)
		r.byCode[account.Code] = account.ID
	}
	copied := *account
	r.byID[account.ID] = &copied
	return nil
}

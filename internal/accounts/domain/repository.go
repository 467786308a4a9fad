package accounts

import "context"

// Repository persists chart-of-accounts entries.
type Repository interface {
	Get(ctx context.Context, id string) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	Save(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"backoffice-ledger/internal/audit"

	accounts "backoffice-ledger/internal/accounts/domain"
)

// UsageChecker reports whether open-period entries reference an account.
// The ledger store implements it.
type UsageChecker interface {
	HasOpenPeriodEntries(ctx context.Context, accountID string) (bool, error)
}

// RegistryService owns chart-of-accounts operations.
type RegistryService struct {
	repo        accounts.Repository
	usage       UsageChecker
	auditLogger audit.Logger
}

// NewRegistryService constructs the registry service.
func NewRegistryService(repo accounts.Repository, usage UsageChecker, auditLogger audit.Logger) (*RegistryService, error) {
	if repo == nil {
		return nil, errors.New("registry service: nil repository")
	}
	return &RegistryService{repo: repo, usage: usage, auditLogger: auditLogger}, nil
}

// CreateAccountParams holds the fields for a new account.
type CreateAccountParams struct {
	Code           string
	Name           string
	Type           accounts.AccountType
	ParentCode     string
	OpeningBalance int64
	Currency       string
}

// CreateAccount adds an account to the chart. The code must be unique and
// the parent, when given, must exist, share the account type and not
// introduce a cycle.
func (s *RegistryService) CreateAccount(ctx context.Context, params CreateAccountParams) (*accounts.Account, error) {
	code := strings.TrimSpace(params.Code)
	if code == "" {
		return nil, accounts.ErrEmptyCode
	}
	if _, ok := accounts.NormalizeType(string(params.Type)); !ok {
		return nil, accounts.ErrInvalidType
	}

	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, accounts.ErrDuplicateCode
	}

	parentID := ""
	if params.ParentCode != "" {
		parent, err := s.repo.GetByCode(ctx, params.ParentCode)
		if err != nil {
			if errors.Is(err, accounts.ErrAccountNotFound) {
				return nil, accounts.ErrInvalidParent
			}
			return nil, err
		}
		if parent.Type != params.Type {
			return nil, accounts.ErrInvalidParent
		}
		parentID = parent.ID
	}

	account := &accounts.Account{
		ID:             accounts.NewID(),
		Code:           code,
		Name:           strings.TrimSpace(params.Name),
		Type:           params.Type,
		ParentID:       parentID,
		OpeningBalance: params.OpeningBalance,
		Currency:       params.Currency,
		Active:         true,
	}
	if err := s.repo.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// RenameAccount changes an account's display name.
func (s *RegistryService) RenameAccount(ctx context.Context, id, name string) error {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	account.Name = strings.TrimSpace(name)
	return s.repo.Update(ctx, account)
}

// DeactivateAccount soft-disables an account. When open-period entries
// reference the account the call fails with ErrAccountInUse unless
// override is set; overrides are written to the audit log.
func (s *RegistryService) DeactivateAccount(ctx context.Context, id string, override bool) error {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.usage != nil {
		inUse, err := s.usage.HasOpenPeriodEntries(ctx, account.ID)
		if err != nil {
			return err
		}
		if inUse && !override {
			return accounts.ErrAccountInUse
		}
		if inUse && override && s.auditLogger != nil {
			meta, _ := json.Marshal(map[string]any{"code": account.Code, "override": true})
			_ = s.auditLogger.Log(ctx, audit.Entry{
				Action:       "account.deactivate.override",
				ResourceType: "account",
				ResourceID:   account.ID,
				Metadata:     meta,
			})
		}
	}
	account.Active = false
	return s.repo.Update(ctx, account)
}

// ResolveByCode returns the account carrying the given human code.
func (s *RegistryService) ResolveByCode(ctx context.Context, code string) (*accounts.Account, error) {
	return s.repo.GetByCode(ctx, strings.TrimSpace(code))
}

// List returns every account in the chart.
func (s *RegistryService) List(ctx context.Context) ([]*accounts.Account, error) {
	return s.repo.List(ctx)
}

// TreeOf returns the subtree rooted at the given account, root first.
// Traversal tracks visited ids so a corrupted parent chain cannot loop.
func (s *RegistryService) TreeOf(ctx context.Context, id string) ([]*accounts.Account, error) {
	root, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]*accounts.Account)
	for _, account := range all {
		if account.ParentID != "" {
			children[account.ParentID] = append(children[account.ParentID], account)
		}
	}

	var tree []*accounts.Account
	visited := make(map[string]bool)
	queue := []*accounts.Account{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if visited[node.ID] {
			continue
		}
		visited[node.ID] = true
		tree = append(tree, node)
		queue = append(queue, children[node.ID]...)
	}
	return tree, nil
}

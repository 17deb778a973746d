// Package accounts enumerates the watched accounts and their labels.
package accounts

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/gavsync/internal/domain"
)

// IdentityStore lists accounts and their display metadata.
type IdentityStore interface {
	ListAccounts(ctx context.Context) ([]common.Address, error)
	AccountsInfo(ctx context.Context) (map[common.Address]domain.AccountMeta, error)
}

// Registry produces the initial account list.
type Registry struct {
	store IdentityStore
	l     *zap.Logger
}

// NewRegistry creates a registry over store.
func NewRegistry(l *zap.Logger, store IdentityStore) *Registry {
	return &Registry{store: store, l: l}
}

// Enumerate lists accounts and metadata concurrently and merges them in store order,
// with zero balances. Either both succeed or *domain.EnumerationError is returned.
func (r *Registry) Enumerate(ctx context.Context) ([]domain.Account, error) {
	var (
		addresses []common.Address
		meta      map[common.Address]domain.AccountMeta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		addresses, err = r.store.ListAccounts(gctx)
		return errors.Wrap(err, "list accounts")
	})
	g.Go(func() error {
		var err error
		meta, err = r.store.AccountsInfo(gctx)
		return errors.Wrap(err, "accounts info")
	})
	if err := g.Wait(); err != nil {
		return nil, &domain.EnumerationError{Err: err}
	}

	accounts := make([]domain.Account, 0, len(addresses))
	seen := make(map[common.Address]struct{}, len(addresses))
	for _, addr := range addresses {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		accounts = append(accounts, domain.NewAccount(addr, meta[addr].Name))
	}

	r.l.Info("accounts enumerated", zap.Int("count", len(accounts)))

	return accounts, nil
}

// Package resolver discovers the token contract through the name registry and binds to it.
package resolver

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/contracts"
	"github.com/vadiminshakov/gavsync/internal/domain"
)

// AddressCategory registry key under which contract addresses are stored.
const AddressCategory = "A"

// ErrNotRegistered is returned when the registry has no entry for the name.
var ErrNotRegistered = errors.New("name is not registered")

type registrySource interface {
	RegistryAddress(ctx context.Context) (common.Address, error)
}

// Resolver resolves a contract name into a typed binding.
type Resolver struct {
	registry registrySource
	caller   contracts.Caller
	abiJSON  string
	l        *zap.Logger
}

// NewResolver creates a resolver that binds resolved addresses to abiJSON.
func NewResolver(l *zap.Logger, registry registrySource, caller contracts.Caller, abiJSON string) *Resolver {
	return &Resolver{
		registry: registry,
		caller:   caller,
		abiJSON:  abiJSON,
		l:        l,
	}
}

// NameHash hashes a registry name the way the registry keys its entries.
func NameHash(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}

// Resolve looks up name in the registry and returns a binding to its address.
// Every failure is reported as *domain.ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, name string) (*contracts.Binding, error) {
	binding, err := r.resolve(ctx, name)
	if err != nil {
		return nil, &domain.ResolutionError{Name: name, Err: err}
	}

	r.l.Info("contract resolved", zap.String("name", name), zap.Stringer("address", binding.Address()))

	return binding, nil
}

func (r *Resolver) resolve(ctx context.Context, name string) (*contracts.Binding, error) {
	registryAddr, err := r.registry.RegistryAddress(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "registry address")
	}
	r.l.Debug("registry found", zap.Stringer("registry", registryAddr))

	registry, err := contracts.NewBinding(registryAddr, contracts.RegistryABI, r.caller)
	if err != nil {
		return nil, errors.Wrap(err, "bind registry")
	}

	addr, err := registry.CallAddress(ctx, contracts.MethodGetAddress, [32]byte(NameHash(name)), AddressCategory)
	if err != nil {
		return nil, errors.Wrap(err, "registry lookup")
	}
	if addr == (common.Address{}) {
		return nil, ErrNotRegistered
	}

	binding, err := contracts.NewBinding(addr, r.abiJSON, r.caller)
	if err != nil {
		return nil, errors.Wrap(err, "bind contract")
	}

	return binding, nil
}

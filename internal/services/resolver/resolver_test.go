package resolver

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/contracts"
	"github.com/vadiminshakov/gavsync/internal/domain"
	"github.com/vadiminshakov/gavsync/mocks/chain"
)

var (
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	tokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

func TestResolver_Resolve(t *testing.T) {
	node := chain.NewNode(registryAddr)
	node.Register(NameHash("gavcoin"), tokenAddr)

	r := NewResolver(zap.NewNop(), node, node, contracts.GavcoinABI)
	binding, err := r.Resolve(context.Background(), "gavcoin")
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, binding.Address())

	node.SetCounters(big.NewInt(5_000_000), big.NewInt(0), big.NewInt(0))
	supply, err := binding.CallBig(context.Background(), contracts.MethodTotalSupply)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5_000_000), supply)
}

func TestResolver_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(node *chain.Node)
		abiJSON string
		cause   error
	}{
		{
			name: "registry unreachable",
			setup: func(node *chain.Node) {
				node.Fail(chain.KeyRegistryAddress, errors.New("connection refused"))
			},
			abiJSON: contracts.GavcoinABI,
		},
		{
			name: "registry call fails",
			setup: func(node *chain.Node) {
				node.Fail(chain.KeyGetAddress, errors.New("execution reverted"))
			},
			abiJSON: contracts.GavcoinABI,
		},
		{
			name:    "name not registered",
			setup:   func(node *chain.Node) {},
			abiJSON: contracts.GavcoinABI,
			cause:   ErrNotRegistered,
		},
		{
			name: "invalid interface",
			setup: func(node *chain.Node) {
				node.Register(NameHash("gavcoin"), tokenAddr)
			},
			abiJSON: `{not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := chain.NewNode(registryAddr)
			tt.setup(node)

			r := NewResolver(zap.NewNop(), node, node, tt.abiJSON)
			binding, err := r.Resolve(context.Background(), "gavcoin")
			require.Error(t, err)
			assert.Nil(t, binding)

			var resErr *domain.ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, "gavcoin", resErr.Name)
			if tt.cause != nil {
				assert.True(t, errors.Is(err, tt.cause))
			}
		})
	}
}

func TestNameHash(t *testing.T) {
	// keccak256("")
	assert.Equal(t,
		common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		NameHash(""))
	assert.NotEqual(t, NameHash("gavcoin"), NameHash("Gavcoin"))
}

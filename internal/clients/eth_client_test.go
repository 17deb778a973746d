package clients

import (
	"context"
	"math/big"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/domain"
)

var (
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	alice        = common.HexToAddress("0x0000000000000000000000000000000000001001")
	bob          = common.HexToAddress("0x0000000000000000000000000000000000001002")
)

type ethService struct {
	block atomic.Uint64
}

func (s *ethService) Accounts() []common.Address {
	return []common.Address{alice, bob}
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(s.block.Load())
}

func (s *ethService) GetBalance(addr common.Address, block string) *hexutil.Big {
	if addr == alice {
		return (*hexutil.Big)(big.NewInt(1e18))
	}
	return (*hexutil.Big)(new(big.Int))
}

// NewHeads accepts eth_subscribe("newHeads") and never notifies.
func (s *ethService) NewHeads(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	return notifier.CreateSubscription(), nil
}

type parityService struct{}

func (parityService) RegistryAddress() *common.Address {
	addr := registryAddr
	return &addr
}

func (parityService) AllAccountsInfo() map[common.Address]domain.AccountMeta {
	return map[common.Address]domain.AccountMeta{alice: {Name: "alice"}}
}

func newHTTPClient(t *testing.T, eth *ethService, opts ...Option) *EthClient {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", eth))
	require.NoError(t, server.RegisterName("parity", parityService{}))
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		server.Stop()
	})

	c, err := DialEthClient(context.Background(), ts.URL, zap.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func TestEthClient_Identity(t *testing.T) {
	c := newHTTPClient(t, &ethService{})
	ctx := context.Background()

	addr, err := c.RegistryAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, registryAddr, addr)

	accounts, err := c.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice, bob}, accounts)

	info, err := c.AccountsInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", info[alice].Name)
	_, ok := info[bob]
	assert.False(t, ok)

	wei, err := c.BalanceAt(ctx, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1e18), wei)
}

func TestEthClient_RegistryOverride(t *testing.T) {
	override := common.HexToAddress("0x00000000000000000000000000000000000000f2")
	c := newHTTPClient(t, &ethService{}, WithRegistryAddress(override))

	addr, err := c.RegistryAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, override, addr)
}

func TestEthClient_PollsWithoutNotifications(t *testing.T) {
	eth := &ethService{}
	eth.block.Store(5)
	c := newHTTPClient(t, eth, WithPollInterval(10*time.Millisecond))

	blocks := make(chan uint64, 4)
	sub, err := c.SubscribeBlockNumber(context.Background(), blocks)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Equal(t, uint64(5), receive(t, blocks))
	eth.block.Store(7)
	assert.Equal(t, uint64(7), receive(t, blocks))

	select {
	case n := <-blocks:
		t.Fatalf("unchanged head delivered again: %d", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func receive(t *testing.T, ch <-chan uint64) uint64 {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(time.Second):
		t.Fatal("no block delivered")
		return 0
	}
}

func TestEthClient_SubscriptionEndsWithClient(t *testing.T) {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethService{}))
	t.Cleanup(server.Stop)

	c := NewEthClient(rpc.DialInProc(server), zap.NewNop())
	sub, err := c.SubscribeBlockNumber(context.Background(), make(chan uint64, 1))
	require.NoError(t, err)
	defer sub.Unsubscribe()

	c.Close()

	select {
	case err := <-sub.Err():
		assert.ErrorIs(t, err, ErrSubscriptionClosed)
	case <-time.After(time.Second):
		t.Fatal("subscription did not report the closed connection")
	}
}

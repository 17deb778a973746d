package clients

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/domain"
	"github.com/vadiminshakov/gavsync/pkg/retrier"
)

// ErrSubscriptionClosed is delivered when the node connection ends a subscription
// that was not unsubscribed.
var ErrSubscriptionClosed = errors.New("subscription closed")

const (
	defaultPollInterval = 4 * time.Second
	headsBuffer         = 16
)

// EthClient talks to an Ethereum-compatible node over JSON-RPC.
type EthClient struct {
	rpc              *rpc.Client
	eth              *ethclient.Client
	registryOverride *common.Address
	pollInterval     time.Duration
	retrier          *retrier.Retrier
	logger           *zap.Logger
}

// Option configures EthClient.
type Option func(*EthClient)

// WithRegistryAddress skips the node's registry discovery and uses addr.
func WithRegistryAddress(addr common.Address) Option {
	return func(c *EthClient) {
		c.registryOverride = &addr
	}
}

// WithPollInterval sets the block polling interval used when the transport
// cannot push notifications.
func WithPollInterval(d time.Duration) Option {
	return func(c *EthClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// DialEthClient connects to rawURL (http, ws or ipc).
func DialEthClient(ctx context.Context, rawURL string, logger *zap.Logger, opts ...Option) (*EthClient, error) {
	rpcClient, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", rawURL)
	}

	return NewEthClient(rpcClient, logger, opts...), nil
}

// NewEthClient wraps an established RPC connection.
func NewEthClient(rpcClient *rpc.Client, logger *zap.Logger, opts ...Option) *EthClient {
	c := &EthClient{
		rpc:          rpcClient,
		eth:          ethclient.NewClient(rpcClient),
		pollInterval: defaultPollInterval,
		retrier:      retrier.New(retrier.WithMaxRetries(3), retrier.WithInitialInterval(500*time.Millisecond)),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RegistryAddress returns the address of the node's name registry.
func (c *EthClient) RegistryAddress(ctx context.Context) (common.Address, error) {
	if c.registryOverride != nil {
		return *c.registryOverride, nil
	}

	var addr *common.Address
	if err := c.rpc.CallContext(ctx, &addr, "parity_registryAddress"); err != nil {
		return common.Address{}, errors.Wrap(err, "parity_registryAddress")
	}
	if addr == nil || *addr == (common.Address{}) {
		return common.Address{}, errors.New("node has no registry configured")
	}

	return *addr, nil
}

// ListAccounts returns the accounts held by the node's signer.
func (c *EthClient) ListAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, errors.Wrap(err, "eth_accounts")
	}

	return accounts, nil
}

// AccountsInfo returns display metadata for the node's accounts.
func (c *EthClient) AccountsInfo(ctx context.Context) (map[common.Address]domain.AccountMeta, error) {
	info := make(map[common.Address]domain.AccountMeta)
	if err := c.rpc.CallContext(ctx, &info, "parity_allAccountsInfo"); err != nil {
		return nil, errors.Wrap(err, "parity_allAccountsInfo")
	}

	return info, nil
}

// CallContract executes eth_call.
func (c *EthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

// BalanceAt returns the wei balance of account.
func (c *EthClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, account, blockNumber)
}

// SubscribeBlockNumber delivers new head numbers to ch. Transports without
// notification support fall back to polling eth_blockNumber.
func (c *EthClient) SubscribeBlockNumber(ctx context.Context, ch chan<- uint64) (event.Subscription, error) {
	heads := make(chan *types.Header, headsBuffer)
	sub, err := c.eth.SubscribeNewHead(ctx, heads)
	if err != nil {
		if errors.Is(err, rpc.ErrNotificationsUnsupported) {
			c.logger.Info("node does not push heads, polling block number", zap.Duration("interval", c.pollInterval))
			return c.pollBlockNumber(ch), nil
		}
		return nil, errors.Wrap(err, "subscribe new heads")
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case <-quit:
				return nil
			case err, ok := <-sub.Err():
				if !ok || err == nil {
					return ErrSubscriptionClosed
				}
				return err
			case head := <-heads:
				select {
				case ch <- head.Number.Uint64():
				case <-quit:
					return nil
				}
			}
		}
	}), nil
}

func (c *EthClient) pollBlockNumber(ch chan<- uint64) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-quit
			cancel()
		}()

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		var last uint64
		for {
			n, err := retrier.DoWithData(c.retrier, ctx, c.eth.BlockNumber)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "poll block number")
			}
			if n != last {
				last = n
				select {
				case ch <- n:
				case <-quit:
					return nil
				}
			}

			select {
			case <-quit:
				return nil
			case <-ticker.C:
			}
		}
	})
}

// Close closes the underlying connection.
func (c *EthClient) Close() {
	c.rpc.Close()
}

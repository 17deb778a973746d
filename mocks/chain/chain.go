// Package chain provides an in-memory node used by tests in place of a JSON-RPC endpoint.
package chain

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/gavsync/internal/contracts"
	"github.com/vadiminshakov/gavsync/internal/domain"
)

// Error keys understood by Fail.
const (
	KeyRegistryAddress = "registryAddress"
	KeyGetAddress      = "getAddress"
	KeyListAccounts    = "listAccounts"
	KeyAccountsInfo    = "accountsInfo"
	KeySubscribe       = "subscribe"
)

// TokenKey error key for balanceOf(addr).
func TokenKey(addr common.Address) string { return "balanceOf:" + addr.Hex() }

// NativeKey error key for eth_getBalance(addr).
func NativeKey(addr common.Address) string { return "balance:" + addr.Hex() }

// Node in-memory chain state.
type Node struct {
	mu sync.Mutex

	gavcoin  abi.ABI
	registry abi.ABI

	registryAddr common.Address
	names        map[common.Hash]common.Address
	counters     map[string]*big.Int
	tokens       map[common.Address]*big.Int
	wei          map[common.Address]*big.Int
	accounts     []common.Address
	meta         map[common.Address]domain.AccountMeta
	failures     map[string]error

	// Hook runs before every read with its error key; tests use it to stall reads.
	Hook func(key string)

	feed       event.Feed
	disconnect chan error
	calls      atomic.Int64
}

// NewNode creates an empty node with a registry at registryAddr.
func NewNode(registryAddr common.Address) *Node {
	gavcoin, err := abi.JSON(strings.NewReader(contracts.GavcoinABI))
	if err != nil {
		panic(err)
	}
	registry, err := abi.JSON(strings.NewReader(contracts.RegistryABI))
	if err != nil {
		panic(err)
	}

	return &Node{
		gavcoin:      gavcoin,
		registry:     registry,
		registryAddr: registryAddr,
		names:        make(map[common.Hash]common.Address),
		counters:     make(map[string]*big.Int),
		tokens:       make(map[common.Address]*big.Int),
		wei:          make(map[common.Address]*big.Int),
		meta:         make(map[common.Address]domain.AccountMeta),
		failures:     make(map[string]error),
		disconnect:   make(chan error, 1),
	}
}

// Register maps keccak256(name) to addr in the registry.
func (n *Node) Register(nameHash common.Hash, addr common.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names[nameHash] = addr
}

// SetCounters sets totalSupply, remaining and price.
func (n *Node) SetCounters(totalSupply, remaining, price *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counters[contracts.MethodTotalSupply] = totalSupply
	n.counters[contracts.MethodRemaining] = remaining
	n.counters[contracts.MethodPrice] = price
}

// AddAccount adds a signer account with a name (empty for none) and balances.
func (n *Node) AddAccount(addr common.Address, name string, tokens, wei *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts = append(n.accounts, addr)
	if name != "" {
		n.meta[addr] = domain.AccountMeta{Name: name}
	}
	n.tokens[addr] = tokens
	n.wei[addr] = wei
}

// SetBalances changes the balances of addr.
func (n *Node) SetBalances(addr common.Address, tokens, wei *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[addr] = tokens
	n.wei[addr] = wei
}

// Fail makes reads with key return err; nil clears it.
func (n *Node) Fail(key string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.failures, key)
		return
	}
	n.failures[key] = err
}

// Calls returns how many contract and balance reads were served.
func (n *Node) Calls() int64 {
	return n.calls.Load()
}

// EmitBlock notifies all subscribers of a new head.
func (n *Node) EmitBlock(number uint64) {
	n.feed.Send(number)
}

// Disconnect terminates the current subscription with err.
func (n *Node) Disconnect(err error) {
	n.disconnect <- err
}

func (n *Node) enter(key string) error {
	if n.Hook != nil {
		n.Hook(key)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failures[key]
}

// RegistryAddress implements the registry discovery call.
func (n *Node) RegistryAddress(ctx context.Context) (common.Address, error) {
	if err := n.enter(KeyRegistryAddress); err != nil {
		return common.Address{}, err
	}
	return n.registryAddr, nil
}

// ListAccounts implements eth_accounts.
func (n *Node) ListAccounts(ctx context.Context) ([]common.Address, error) {
	if err := n.enter(KeyListAccounts); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]common.Address(nil), n.accounts...), nil
}

// AccountsInfo implements account metadata lookup.
func (n *Node) AccountsInfo(ctx context.Context) (map[common.Address]domain.AccountMeta, error) {
	if err := n.enter(KeyAccountsInfo); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[common.Address]domain.AccountMeta, len(n.meta))
	for k, v := range n.meta {
		out[k] = v
	}
	return out, nil
}

// BalanceAt implements eth_getBalance.
func (n *Node) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	n.calls.Add(1)
	if err := n.enter(NativeKey(account)); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return valueOrZero(n.wei[account]), nil
}

// CallContract implements eth_call against the registry and the token contract.
func (n *Node) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	n.calls.Add(1)
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("invalid call")
	}
	if *msg.To == n.registryAddr {
		return n.callRegistry(msg.Data)
	}
	return n.callToken(msg.Data)
}

func (n *Node) callRegistry(data []byte) ([]byte, error) {
	method, err := n.registry.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	if err := n.enter(KeyGetAddress); err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	name := common.Hash(args[0].([32]byte))

	n.mu.Lock()
	addr := n.names[name]
	n.mu.Unlock()

	return method.Outputs.Pack(addr)
}

func (n *Node) callToken(data []byte) ([]byte, error) {
	method, err := n.gavcoin.MethodById(data[:4])
	if err != nil {
		return nil, err
	}

	if method.Name == contracts.MethodBalanceOf {
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		holder := args[0].(common.Address)
		if err := n.enter(TokenKey(holder)); err != nil {
			return nil, err
		}
		n.mu.Lock()
		v := valueOrZero(n.tokens[holder])
		n.mu.Unlock()
		return method.Outputs.Pack(v)
	}

	if err := n.enter(method.Name); err != nil {
		return nil, err
	}
	n.mu.Lock()
	v := valueOrZero(n.counters[method.Name])
	n.mu.Unlock()
	return method.Outputs.Pack(v)
}

// SubscribeBlockNumber delivers emitted blocks to ch until unsubscribed or disconnected.
func (n *Node) SubscribeBlockNumber(ctx context.Context, ch chan<- uint64) (event.Subscription, error) {
	if err := n.enter(KeySubscribe); err != nil {
		return nil, err
	}

	blocks := make(chan uint64, 16)
	inner := n.feed.Subscribe(blocks)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer inner.Unsubscribe()
		for {
			select {
			case <-quit:
				return nil
			case err := <-n.disconnect:
				return err
			case b := <-blocks:
				select {
				case ch <- b:
				case <-quit:
					return nil
				}
			}
		}
	}), nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

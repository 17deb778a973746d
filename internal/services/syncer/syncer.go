// Package syncer refreshes the published snapshot on every new block.
package syncer

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/gavsync/internal/contracts"
	"github.com/vadiminshakov/gavsync/internal/domain"
	"github.com/vadiminshakov/gavsync/internal/state"
	"github.com/vadiminshakov/gavsync/pkg/retrier"
)

const defaultReadTimeout = 30 * time.Second

// tokenReader issues read-only calls on the resolved token contract.
type tokenReader interface {
	CallBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error)
}

type balanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type snapshotStore interface {
	Get() domain.Snapshot
	Commit(snapshot domain.Snapshot) error
}

type passMetrics interface {
	Committed(block uint64, accounts int, took time.Duration)
	Failed()
	Stale()
}

// Engine runs synchronization passes. Passes are independent: several may be in
// flight at once and each commits its own complete snapshot.
type Engine struct {
	token       tokenReader
	balances    balanceReader
	store       snapshotStore
	metrics     passMetrics
	retrier     *retrier.Retrier
	readTimeout time.Duration
	l           *zap.Logger
}

// Option configures Engine.
type Option func(*Engine)

// WithMetrics records pass outcomes.
func WithMetrics(m passMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithReadRetries retries each individual read up to n times before the pass is aborted.
func WithReadRetries(n int, backoff time.Duration) Option {
	return func(e *Engine) {
		e.retrier = retrier.New(
			retrier.WithMaxRetries(n),
			retrier.WithInitialInterval(backoff),
			retrier.WithRetryIf(func(err error) bool {
				return !errors.Is(err, context.Canceled)
			}),
		)
	}
}

// WithReadTimeout bounds every individual read.
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.readTimeout = d
		}
	}
}

// NewEngine creates an engine reading token state through token and native balances through balances.
func NewEngine(l *zap.Logger, token tokenReader, balances balanceReader, store snapshotStore, opts ...Option) *Engine {
	e := &Engine{
		token:       token,
		balances:    balances,
		store:       store,
		retrier:     retrier.New(retrier.WithMaxRetries(0)),
		readTimeout: defaultReadTimeout,
		l:           l,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// OnBlock runs one pass for blockNumber. Errors are logged, never returned,
// so a failing pass leaves the engine subscribed.
func (e *Engine) OnBlock(ctx context.Context, blockNumber uint64) {
	if err := e.Sync(ctx, blockNumber); err != nil {
		if errors.Is(err, state.ErrStalePass) {
			e.l.Debug("discarded stale pass", zap.Uint64("block", blockNumber), zap.Error(err))
			return
		}
		e.l.Error("sync pass failed", zap.Uint64("block", blockNumber), zap.Error(err))
	}
}

// Sync runs one pass: global counters, then per-account balances, then a single commit.
// On any read failure nothing is committed and a *domain.SyncReadError is returned.
func (e *Engine) Sync(ctx context.Context, blockNumber uint64) error {
	started := time.Now()

	base := e.store.Get()
	if base.Loading {
		return state.ErrNotPublished
	}

	global, err := e.readGlobal(ctx, blockNumber)
	if err != nil {
		e.fail()
		return err
	}

	accounts, err := e.readAccounts(ctx, blockNumber, base.Accounts)
	if err != nil {
		e.fail()
		return err
	}

	next := buildSnapshot(base, global, accounts)
	if err := e.store.Commit(next); err != nil {
		if errors.Is(err, state.ErrStalePass) && e.metrics != nil {
			e.metrics.Stale()
		}
		return err
	}

	took := time.Since(started)
	if e.metrics != nil {
		e.metrics.Committed(blockNumber, len(accounts), took)
	}
	e.l.Debug("snapshot committed",
		zap.Uint64("block", blockNumber),
		zap.Int("accounts", len(accounts)),
		zap.String("gav_total", domain.FormatToken(next.GavBalanceTotal)),
		zap.String("eth_total", domain.FormatEther(next.EthBalanceTotal)),
		zap.Duration("took", took))

	return nil
}

func (e *Engine) fail() {
	if e.metrics != nil {
		e.metrics.Failed()
	}
}

func (e *Engine) readGlobal(ctx context.Context, blockNumber uint64) (domain.GlobalState, error) {
	var totalSupply, remaining, price *big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(e.readCounter(gctx, blockNumber, contracts.MethodTotalSupply, &totalSupply))
	g.Go(e.readCounter(gctx, blockNumber, contracts.MethodRemaining, &remaining))
	g.Go(e.readCounter(gctx, blockNumber, contracts.MethodPrice, &price))
	if err := g.Wait(); err != nil {
		return domain.GlobalState{}, err
	}

	return domain.GlobalState{
		BlockNumber: blockNumber,
		TotalSupply: domain.TokenAmount(totalSupply),
		Remaining:   domain.TokenAmount(remaining),
		Price:       domain.EtherAmount(price),
	}, nil
}

func (e *Engine) readCounter(ctx context.Context, blockNumber uint64, method string, out **big.Int) func() error {
	return func() error {
		v, err := e.read(ctx, func(ctx context.Context) (*big.Int, error) {
			return e.token.CallBig(ctx, method)
		})
		if err != nil {
			return &domain.SyncReadError{BlockNumber: blockNumber, Read: method, Err: err}
		}
		*out = v
		return nil
	}
}

// readAccounts issues one token and one native balance read per account, all concurrently.
func (e *Engine) readAccounts(ctx context.Context, blockNumber uint64, accounts []domain.Account) ([]domain.Account, error) {
	tokens := make([]*big.Int, len(accounts))
	wei := make([]*big.Int, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	for i, acc := range accounts {
		addr := acc.Address
		g.Go(func() error {
			v, err := e.read(gctx, func(ctx context.Context) (*big.Int, error) {
				return e.token.CallBig(ctx, contracts.MethodBalanceOf, addr)
			})
			if err != nil {
				return &domain.SyncReadError{BlockNumber: blockNumber, Read: "balanceOf " + addr.Hex(), Err: err}
			}
			tokens[i] = v
			return nil
		})
		g.Go(func() error {
			v, err := e.read(gctx, func(ctx context.Context) (*big.Int, error) {
				return e.balances.BalanceAt(ctx, addr, nil)
			})
			if err != nil {
				return &domain.SyncReadError{BlockNumber: blockNumber, Read: "balance " + addr.Hex(), Err: err}
			}
			wei[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Account, len(accounts))
	for i, acc := range accounts {
		out[i] = acc.WithBalances(tokens[i], wei[i])
	}

	return out, nil
}

func (e *Engine) read(ctx context.Context, fn func(ctx context.Context) (*big.Int, error)) (*big.Int, error) {
	return retrier.DoWithData(e.retrier, ctx, func(ctx context.Context) (*big.Int, error) {
		rctx, cancel := context.WithTimeout(ctx, e.readTimeout)
		defer cancel()
		return fn(rctx)
	})
}

// buildSnapshot merges one pass's reads into a new snapshot value.
func buildSnapshot(base domain.Snapshot, global domain.GlobalState, accounts []domain.Account) domain.Snapshot {
	next := base.Clone()
	next.GlobalState = global
	next.Accounts = accounts
	next.EthBalanceTotal = decimal.Zero
	next.GavBalanceTotal = decimal.Zero
	for _, acc := range accounts {
		next.EthBalanceTotal = next.EthBalanceTotal.Add(acc.EthBalance)
		next.GavBalanceTotal = next.GavBalanceTotal.Add(acc.GavBalance)
	}

	return next
}

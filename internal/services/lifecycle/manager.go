// Package lifecycle wires startup and the block subscription around the synchronization engine.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/contracts"
	"github.com/vadiminshakov/gavsync/internal/domain"
)

var (
	// ErrAlreadyStarted is returned by every Start after the first.
	ErrAlreadyStarted = errors.New("lifecycle already started")
	// ErrStopped is returned by a Start that finished subscribing after Stop.
	ErrStopped = errors.New("lifecycle stopped")
)

var errSubscriptionEnded = errors.New("block subscription ended")

const blocksBuffer = 64

type contractResolver interface {
	Resolve(ctx context.Context, name string) (*contracts.Binding, error)
}

type enumerator interface {
	Enumerate(ctx context.Context) ([]domain.Account, error)
}

type publisher interface {
	Publish(snapshot domain.Snapshot) error
}

type blockSource interface {
	SubscribeBlockNumber(ctx context.Context, ch chan<- uint64) (event.Subscription, error)
}

// BlockHandler runs one synchronization pass per block.
type BlockHandler interface {
	OnBlock(ctx context.Context, blockNumber uint64)
}

// EngineFactory builds the block handler once the contract binding is known.
type EngineFactory func(binding *contracts.Binding) BlockHandler

// Manager performs the one-time startup sequence and owns the block subscription.
type Manager struct {
	contractName string
	resolver     contractResolver
	accounts     enumerator
	store        publisher
	blocks       blockSource
	newEngine    EngineFactory
	l            *zap.Logger

	started  atomic.Bool
	stopOnce sync.Once
	mu       sync.Mutex
	sub      event.Subscription
	quit     chan struct{}
	loopDone chan struct{}
	passes   sync.WaitGroup
	errCh    chan error
}

// NewManager creates a manager for the contract registered under contractName.
func NewManager(l *zap.Logger, contractName string, r contractResolver, accounts enumerator, store publisher,
	blocks blockSource, newEngine EngineFactory) *Manager {
	return &Manager{
		contractName: contractName,
		resolver:     r,
		accounts:     accounts,
		store:        store,
		blocks:       blocks,
		newEngine:    newEngine,
		l:            l,
		quit:         make(chan struct{}),
		loopDone:     make(chan struct{}),
		errCh:        make(chan error, 1),
	}
}

// Start resolves the contract, enumerates accounts, publishes the initial snapshot and
// subscribes to new blocks. Any failure before publication leaves the store loading.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	binding, err := m.resolver.Resolve(ctx, m.contractName)
	if err != nil {
		m.l.Error("failed to resolve contract", zap.String("name", m.contractName), zap.Error(err))
		return err
	}

	accounts, err := m.accounts.Enumerate(ctx)
	if err != nil {
		m.l.Error("failed to enumerate accounts", zap.Error(err))
		return err
	}

	if err := m.store.Publish(domain.NewInitialSnapshot(binding.Address(), accounts)); err != nil {
		return errors.Wrap(err, "publish initial snapshot")
	}
	m.l.Info("initial snapshot published",
		zap.Stringer("contract", binding.Address()),
		zap.Int("accounts", len(accounts)))

	engine := m.newEngine(binding)

	blocks := make(chan uint64, blocksBuffer)
	sub, err := m.blocks.SubscribeBlockNumber(ctx, blocks)
	if err != nil {
		terr := &domain.TransportError{Err: err}
		m.l.Error("failed to subscribe to blocks", zap.Error(terr))
		return terr
	}
	m.mu.Lock()
	select {
	case <-m.quit:
		m.mu.Unlock()
		sub.Unsubscribe()
		m.l.Info("stopped during startup, block subscription released")
		return ErrStopped
	default:
	}
	m.sub = sub
	m.mu.Unlock()

	go m.loop(context.WithoutCancel(ctx), engine, blocks, sub)

	return nil
}

func (m *Manager) loop(ctx context.Context, engine BlockHandler, blocks <-chan uint64, sub event.Subscription) {
	defer close(m.loopDone)

	for {
		select {
		case <-m.quit:
			return
		case err, ok := <-sub.Err():
			select {
			case <-m.quit:
				return
			default:
			}
			if !ok || err == nil {
				err = errSubscriptionEnded
			}
			terr := &domain.TransportError{Err: err}
			m.l.Error("block subscription failed", zap.Error(terr))
			m.errCh <- terr
			return
		case n := <-blocks:
			m.l.Debug("new block", zap.Uint64("block", n))
			m.passes.Add(1)
			go func() {
				defer m.passes.Done()
				engine.OnBlock(ctx, n)
			}()
		}
	}
}

// Err delivers a transport error if the block subscription terminates unexpectedly.
func (m *Manager) Err() <-chan error {
	return m.errCh
}

// Stop unsubscribes from blocks and waits for in-flight passes.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.quit)

		m.mu.Lock()
		sub := m.sub
		m.mu.Unlock()
		if sub == nil {
			return
		}
		sub.Unsubscribe()
		<-m.loopDone
		m.passes.Wait()
		m.l.Info("block subscription stopped")
	})
}

// Run starts the manager and blocks until ctx is done or the subscription fails.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-m.errCh:
		return err
	}
}

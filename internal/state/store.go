// Package state holds the published snapshot and notifies consumers of changes.
package state

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/domain"
	"github.com/vadiminshakov/gavsync/internal/events"
)

// Ordering decides what happens when passes complete out of block order.
type Ordering int

const (
	// OrderingMonotonic rejects a pass older than the committed block.
	OrderingMonotonic Ordering = iota
	// OrderingLastWriterWins accepts whichever pass commits last.
	OrderingLastWriterWins
)

var (
	// ErrStalePass is returned when a pass for an older block is rejected.
	ErrStalePass = errors.New("pass is older than the committed snapshot")
	// ErrNotPublished is returned when committing before the initial snapshot exists.
	ErrNotPublished = errors.New("initial snapshot is not published")
	// ErrAlreadyPublished is returned by a second Publish.
	ErrAlreadyPublished = errors.New("initial snapshot is already published")
)

const changesBuffer = 16

// ParseOrdering parses "monotonic" or "last_writer_wins".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monotonic":
		return OrderingMonotonic, nil
	case "last_writer_wins", "lww":
		return OrderingLastWriterWins, nil
	}
	return 0, errors.Errorf("unknown ordering %q", s)
}

func (o Ordering) String() string {
	if o == OrderingLastWriterWins {
		return "last_writer_wins"
	}
	return "monotonic"
}

type recorder interface {
	Save(snapshot domain.Snapshot) error
}

// Store publishes immutable snapshots. Reads are lock-free; commits are serialized
// so that the pointer swap, change notification and recording happen in one order.
type Store struct {
	current  atomic.Pointer[domain.Snapshot]
	commitMu sync.Mutex
	ordering Ordering
	changes  *events.Broadcaster[domain.Snapshot]
	recorder recorder
	l        *zap.Logger
}

// Option configures Store.
type Option func(*Store)

// WithOrdering sets the out-of-order policy.
func WithOrdering(o Ordering) Option {
	return func(s *Store) {
		s.ordering = o
	}
}

// WithRecorder persists every published snapshot.
func WithRecorder(r recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// NewStore creates a store holding the loading snapshot.
func NewStore(l *zap.Logger, opts ...Option) *Store {
	s := &Store{
		changes: events.NewBroadcaster[domain.Snapshot](changesBuffer),
		l:       l,
	}
	for _, opt := range opts {
		opt(s)
	}

	loading := domain.LoadingSnapshot()
	s.current.Store(&loading)

	return s
}

// Get returns the current snapshot. Its Accounts slice is shared and must not be modified.
func (s *Store) Get() domain.Snapshot {
	return *s.current.Load()
}

// Loading reports whether the initial snapshot is still pending.
func (s *Store) Loading() bool {
	return s.current.Load().Loading
}

// Ordering returns the configured out-of-order policy.
func (s *Store) Ordering() Ordering {
	return s.ordering
}

// Publish installs the initial snapshot and ends the loading state.
func (s *Store) Publish(snapshot domain.Snapshot) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if !s.current.Load().Loading {
		return ErrAlreadyPublished
	}
	snapshot.Loading = false
	s.install(snapshot)

	return nil
}

// Commit replaces the published snapshot with the result of a pass.
func (s *Store) Commit(snapshot domain.Snapshot) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	prev := s.current.Load()
	if prev.Loading {
		return ErrNotPublished
	}
	if s.ordering == OrderingMonotonic && snapshot.BlockNumber < prev.BlockNumber {
		return errors.Wrapf(ErrStalePass, "block %d, committed %d", snapshot.BlockNumber, prev.BlockNumber)
	}
	snapshot.Loading = false
	s.install(snapshot)

	return nil
}

func (s *Store) install(snapshot domain.Snapshot) {
	s.current.Store(&snapshot)
	s.changes.Publish(snapshot)

	if s.recorder == nil {
		return
	}
	if err := s.recorder.Save(snapshot); err != nil {
		s.l.Warn("failed to record snapshot", zap.Uint64("block", snapshot.BlockNumber), zap.Error(err))
	}
}

// Subscribe returns a channel receiving every published snapshot.
func (s *Store) Subscribe() <-chan domain.Snapshot {
	ch := s.changes.Subscribe()
	s.l.Debug("snapshot subscriber added", zap.Int("subscribers", s.changes.Len()))
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Store) Unsubscribe(ch <-chan domain.Snapshot) {
	s.changes.Unsubscribe(ch)
	s.l.Debug("snapshot subscriber removed", zap.Int("subscribers", s.changes.Len()))
}

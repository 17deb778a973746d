// Package snapshots keeps a write-ahead log of committed snapshots for history queries.
package snapshots

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/gavsync/internal/domain"
)

const (
	defaultDir      = "./wal/snapshots"
	segmentLimit    = 1000
	maxSegments     = 100
	keyPrefix       = "snapshot_block_"
	defaultPageSize = 500
)

// ErrClosed is returned by operations on a closed or uninitialized store.
var ErrClosed = errors.New("snapshot store is not initialized")

// WALStore appends every committed snapshot to a gowal log.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) the log under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "snapshot_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init snapshot WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends snapshot under the next index. Loading snapshots are not recorded.
func (s *WALStore) Save(snapshot domain.Snapshot) error {
	if s == nil || s.wal == nil {
		return ErrClosed
	}
	if snapshot.Loading {
		return nil
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	key := keyPrefix + strconv.FormatUint(snapshot.BlockNumber, 10)

	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Wrapf(s.wal.Write(s.wal.CurrentIndex()+1, key, payload), "write snapshot for block %d", snapshot.BlockNumber)
}

// SnapshotsAfter returns up to limit snapshots written after index, oldest first.
// A non-positive limit uses the default page size.
func (s *WALStore) SnapshotsAfter(index uint64, limit int) ([]domain.SnapshotRecord, error) {
	if s == nil || s.wal == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.SnapshotRecord, 0, min(current-index, uint64(limit)))
	for idx := index + 1; idx <= current && len(records) < limit; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "read snapshot %d", idx)
		}
		// pruned indexes come back with an empty key
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		var snapshot domain.Snapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, errors.Wrapf(err, "decode snapshot %d", idx)
		}
		records = append(records, domain.SnapshotRecord{Index: idx, Snapshot: snapshot})
	}

	return records, nil
}

// CurrentIndex returns the index of the last written snapshot.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying log.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

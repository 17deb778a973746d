package accounts

import (
	"context"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/gavsync/internal/domain"
)

const keyFileSeparator = "--"

// KeystoreDir reads accounts from a geth-style keystore directory, where key files
// are named UTC--<timestamp>--<address>. Labels come from a static map.
type KeystoreDir struct {
	dir    string
	labels map[common.Address]string
}

// NewKeystoreDir creates an identity store over dir.
func NewKeystoreDir(dir string, labels map[common.Address]string) *KeystoreDir {
	return &KeystoreDir{dir: dir, labels: labels}
}

// ListAccounts returns the addresses of key files in directory order.
// Files not following the naming scheme and subdirectories are skipped.
func (k *KeystoreDir) ListAccounts(ctx context.Context) ([]common.Address, error) {
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read keystore dir %s", k.dir)
	}

	var out []common.Address
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		parts := strings.Split(entry.Name(), keyFileSeparator)
		if len(parts) != 3 {
			continue
		}
		if !common.IsHexAddress(parts[2]) {
			return nil, errors.Errorf("key file %s: invalid address %q", entry.Name(), parts[2])
		}
		out = append(out, common.HexToAddress(parts[2]))
	}

	return out, nil
}

// AccountsInfo returns the configured labels.
func (k *KeystoreDir) AccountsInfo(ctx context.Context) (map[common.Address]domain.AccountMeta, error) {
	out := make(map[common.Address]domain.AccountMeta, len(k.labels))
	for addr, name := range k.labels {
		out[addr] = domain.AccountMeta{Name: name}
	}
	return out, nil
}

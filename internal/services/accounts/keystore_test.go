package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeKeyFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o600))
}

func TestKeystoreDir_ListAccounts(t *testing.T) {
	dir := t.TempDir()
	writeKeyFile(t, dir, "UTC--2016-02-17T09-20-45.721400158Z--0000000000000000000000000000000000000a11")
	writeKeyFile(t, dir, "UTC--2016-02-20T09-33-03.984382741Z--0000000000000000000000000000000000000b0b")
	writeKeyFile(t, dir, "README")
	writeKeyFile(t, dir, "a--b")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "UTC--sub--0000000000000000000000000000000000000c0c"), 0o700))

	ks := NewKeystoreDir(dir, map[common.Address]string{alice: "alice"})
	addrs, err := ks.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice, bob}, addrs)

	accounts, err := NewRegistry(zap.NewNop(), ks).Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice", accounts[0].Name)
	assert.Equal(t, "Unnamed", accounts[1].Name)
}

func TestKeystoreDir_InvalidAddress(t *testing.T) {
	dir := t.TempDir()
	writeKeyFile(t, dir, "UTC--2016-02-17T09-20-45.721400158Z--nothex")

	_, err := NewKeystoreDir(dir, nil).ListAccounts(context.Background())
	assert.ErrorContains(t, err, "invalid address")
}

func TestKeystoreDir_MissingDir(t *testing.T) {
	_, err := NewKeystoreDir(filepath.Join(t.TempDir(), "missing"), nil).ListAccounts(context.Background())
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/gavsync/internal/state"
)

func TestParse_Defaults(t *testing.T) {
	conf, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, defaultRPCURL, conf.RPCURL)
	assert.Nil(t, conf.RegistryAddress)
	assert.Equal(t, "gavcoin", conf.ContractName)
	assert.Equal(t, SourceNode, conf.Accounts.Source)
	assert.Equal(t, state.OrderingMonotonic, conf.Sync.Ordering)
	assert.Equal(t, 0, conf.Sync.ReadRetries)
	assert.Equal(t, defaultReadTimeout, conf.Sync.ReadTimeout)
	assert.Equal(t, defaultPollInterval, conf.Sync.PollInterval)
	assert.Equal(t, "info", conf.Log.Level)
	assert.False(t, conf.Setup)
}

func TestParse_Flags(t *testing.T) {
	conf, err := Parse([]string{
		"--rpc", "http://node:8545",
		"--registry", "0x00000000000000000000000000000000000000f1",
		"--ordering", "last_writer_wins",
		"--read-retries", "2",
		"--read-timeout", "3s",
		"--log-level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://node:8545", conf.RPCURL)
	require.NotNil(t, conf.RegistryAddress)
	assert.Equal(t, common.HexToAddress("0xf1"), *conf.RegistryAddress)
	assert.Equal(t, state.OrderingLastWriterWins, conf.Sync.Ordering)
	assert.Equal(t, 2, conf.Sync.ReadRetries)
	assert.Equal(t, 3*time.Second, conf.Sync.ReadTimeout)
	assert.Equal(t, "debug", conf.Log.Level)
}

func TestParse_Setup(t *testing.T) {
	conf, err := Parse([]string{"--setup"})
	require.NoError(t, err)
	assert.True(t, conf.Setup)
}

func TestParse_Yaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc_url: ws://localhost:8546
contract_name: gavcoin
accounts:
  source: keystore
  keystore_dir: /keys
  labels:
    "0x0000000000000000000000000000000000001001": alice
sync:
  ordering: monotonic
  read_retries: 1
  read_timeout: 5s
  poll_interval: 2s
log:
  level: warn
  file: /var/log/gavsync.log
`), 0o644))

	conf, err := Parse([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8546", conf.RPCURL)
	assert.Equal(t, SourceKeystore, conf.Accounts.Source)
	assert.Equal(t, "/keys", conf.Accounts.KeystoreDir)
	assert.Equal(t, "alice", conf.Accounts.Labels[common.HexToAddress("0x1001")])
	assert.Equal(t, 1, conf.Sync.ReadRetries)
	assert.Equal(t, 5*time.Second, conf.Sync.ReadTimeout)
	assert.Equal(t, 2*time.Second, conf.Sync.PollInterval)
	assert.Equal(t, "warn", conf.Log.Level)
	assert.Equal(t, "/var/log/gavsync.log", conf.Log.File)
	assert.Equal(t, defaultWebAddr, conf.WebAddr)
}

func TestFromTmp_Invalid(t *testing.T) {
	tests := []struct {
		name string
		tmp  ConfigTmp
	}{
		{name: "missing rpc", tmp: ConfigTmp{}},
		{name: "bad registry", tmp: ConfigTmp{RPCURL: "ws://x", RegistryAddress: "0xzz"}},
		{name: "unknown source", tmp: ConfigTmp{RPCURL: "ws://x", Accounts: AccountsTmp{Source: "ledger"}}},
		{name: "keystore without dir", tmp: ConfigTmp{RPCURL: "ws://x", Accounts: AccountsTmp{Source: SourceKeystore}}},
		{name: "bad label", tmp: ConfigTmp{RPCURL: "ws://x", Accounts: AccountsTmp{Labels: map[string]string{"bob": "bob"}}}},
		{name: "bad ordering", tmp: ConfigTmp{RPCURL: "ws://x", Sync: SyncTmp{Ordering: "random"}}},
		{name: "negative retries", tmp: ConfigTmp{RPCURL: "ws://x", Sync: SyncTmp{ReadRetries: -1}}},
		{name: "bad level", tmp: ConfigTmp{RPCURL: "ws://x", Log: LogTmp{Level: "trace"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromTmp(tt.tmp)
			assert.Error(t, err)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Write(path, ConfigTmp{
		RPCURL:   "ws://node:8546",
		Accounts: AccountsTmp{Source: SourceNode},
		Sync:     SyncTmp{Ordering: "last_writer_wins", ReadTimeout: 10 * time.Second},
	}))

	conf, err := Parse([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "ws://node:8546", conf.RPCURL)
	assert.Equal(t, state.OrderingLastWriterWins, conf.Sync.Ordering)
	assert.Equal(t, 10*time.Second, conf.Sync.ReadTimeout)
}

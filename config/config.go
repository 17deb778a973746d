package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/gavsync/internal/state"
)

const (
	SourceNode     = "node"
	SourceKeystore = "keystore"

	defaultRPCURL       = "ws://127.0.0.1:8546"
	defaultContractName = "gavcoin"
	defaultWebAddr      = ":8080"
	defaultWALDir       = "./wal/snapshots"
	defaultReadTimeout  = 30 * time.Second
	defaultPollInterval = 4 * time.Second
	defaultLogLevel     = "info"
)

// Config runtime settings of the synchronizer.
type Config struct {
	RPCURL          string
	RegistryAddress *common.Address
	ContractName    string
	Accounts        AccountsConfig
	WebAddr         string
	WALDir          string
	Sync            SyncConfig
	Log             LogConfig

	// Setup requests the interactive wizard instead of a run.
	Setup bool
}

// AccountsConfig selects the identity store.
type AccountsConfig struct {
	Source      string
	KeystoreDir string
	Labels      map[common.Address]string
}

// SyncConfig tunes synchronization passes.
type SyncConfig struct {
	Ordering     state.Ordering
	ReadRetries  int
	ReadTimeout  time.Duration
	PollInterval time.Duration
}

// LogConfig logger settings. An empty File logs to stderr only.
type LogConfig struct {
	Level string
	File  string
}

// ConfigTmp is the YAML form of Config.
type ConfigTmp struct {
	RPCURL          string      `yaml:"rpc_url"`
	RegistryAddress string      `yaml:"registry_address,omitempty"`
	ContractName    string      `yaml:"contract_name,omitempty"`
	Accounts        AccountsTmp `yaml:"accounts,omitempty"`
	WebAddr         string      `yaml:"web_addr,omitempty"`
	WALDir          string      `yaml:"wal_dir,omitempty"`
	Sync            SyncTmp     `yaml:"sync,omitempty"`
	Log             LogTmp      `yaml:"log,omitempty"`
}

type AccountsTmp struct {
	Source      string            `yaml:"source,omitempty"`
	KeystoreDir string            `yaml:"keystore_dir,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

type SyncTmp struct {
	Ordering     string        `yaml:"ordering,omitempty"`
	ReadRetries  int           `yaml:"read_retries,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

type LogTmp struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Get reads the configuration from the process arguments.
func Get() (Config, error) {
	return Parse(os.Args[1:])
}

// Parse reads --config <file> when given, otherwise the individual flags.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("gavsync", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	setup := fs.Bool("setup", false, "run the interactive configuration wizard")

	rpcURL := fs.String("rpc", defaultRPCURL, "node JSON-RPC endpoint (ws:// for push notifications)")
	registry := fs.String("registry", "", "registry contract address, discovered from the node when empty")
	contract := fs.String("contract", defaultContractName, "registry name of the token contract")
	source := fs.String("accounts", SourceNode, "identity store: node or keystore")
	keystoreDir := fs.String("keystore", "", "keystore directory for --accounts=keystore")
	webAddr := fs.String("web", defaultWebAddr, "http listen address")
	walDir := fs.String("wal", defaultWALDir, "snapshot history directory")
	ordering := fs.String("ordering", state.OrderingMonotonic.String(), "out-of-order passes: monotonic or last_writer_wins")
	retries := fs.Int("read-retries", 0, "retries per failed read within a pass")
	readTimeout := fs.Duration("read-timeout", defaultReadTimeout, "timeout of a single read")
	pollInterval := fs.Duration("poll-interval", defaultPollInterval, "block polling interval when the node has no subscriptions")
	logLevel := fs.String("log-level", defaultLogLevel, "debug, info, warn or error")
	logFile := fs.String("log-file", "", "rotated log file, stderr only when empty")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *setup {
		return Config{Setup: true}, nil
	}
	if *configPath != "" {
		return getYaml(*configPath)
	}

	return fromTmp(ConfigTmp{
		RPCURL:          *rpcURL,
		RegistryAddress: *registry,
		ContractName:    *contract,
		Accounts: AccountsTmp{
			Source:      *source,
			KeystoreDir: *keystoreDir,
		},
		WebAddr: *webAddr,
		WALDir:  *walDir,
		Sync: SyncTmp{
			Ordering:     *ordering,
			ReadRetries:  *retries,
			ReadTimeout:  *readTimeout,
			PollInterval: *pollInterval,
		},
		Log: LogTmp{Level: *logLevel, File: *logFile},
	})
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}

	return fromTmp(tmp)
}

// Write stores tmp as YAML at path.
func Write(path string, tmp ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func fromTmp(c ConfigTmp) (Config, error) {
	conf := Config{
		RPCURL:       strings.TrimSpace(c.RPCURL),
		ContractName: valueOr(c.ContractName, defaultContractName),
		WebAddr:      valueOr(c.WebAddr, defaultWebAddr),
		WALDir:       valueOr(c.WALDir, defaultWALDir),
		Accounts: AccountsConfig{
			Source:      valueOr(c.Accounts.Source, SourceNode),
			KeystoreDir: c.Accounts.KeystoreDir,
		},
		Sync: SyncConfig{
			ReadRetries:  c.Sync.ReadRetries,
			ReadTimeout:  c.Sync.ReadTimeout,
			PollInterval: c.Sync.PollInterval,
		},
		Log: LogConfig{
			Level: valueOr(c.Log.Level, defaultLogLevel),
			File:  c.Log.File,
		},
	}

	if conf.RPCURL == "" {
		return Config{}, fmt.Errorf("'rpc_url' is required")
	}

	if c.RegistryAddress != "" {
		if !common.IsHexAddress(c.RegistryAddress) {
			return Config{}, fmt.Errorf("incorrect 'registry_address' param: %s", c.RegistryAddress)
		}
		addr := common.HexToAddress(c.RegistryAddress)
		conf.RegistryAddress = &addr
	}

	switch conf.Accounts.Source {
	case SourceNode:
	case SourceKeystore:
		if conf.Accounts.KeystoreDir == "" {
			return Config{}, fmt.Errorf("'accounts.keystore_dir' is required for the keystore source")
		}
	default:
		return Config{}, fmt.Errorf("incorrect 'accounts.source' param: %s, must be %s or %s",
			conf.Accounts.Source, SourceNode, SourceKeystore)
	}

	if len(c.Accounts.Labels) > 0 {
		conf.Accounts.Labels = make(map[common.Address]string, len(c.Accounts.Labels))
		for raw, name := range c.Accounts.Labels {
			if !common.IsHexAddress(raw) {
				return Config{}, fmt.Errorf("incorrect address in 'accounts.labels': %s", raw)
			}
			conf.Accounts.Labels[common.HexToAddress(raw)] = name
		}
	}

	ordering, err := state.ParseOrdering(c.Sync.Ordering)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'sync.ordering' param: %w", err)
	}
	conf.Sync.Ordering = ordering

	if conf.Sync.ReadRetries < 0 {
		return Config{}, fmt.Errorf("'sync.read_retries' must not be negative")
	}
	if conf.Sync.ReadTimeout <= 0 {
		conf.Sync.ReadTimeout = defaultReadTimeout
	}
	if conf.Sync.PollInterval <= 0 {
		conf.Sync.PollInterval = defaultPollInterval
	}

	switch conf.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("incorrect 'log.level' param: %s", conf.Log.Level)
	}

	return conf, nil
}

func valueOr(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

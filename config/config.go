package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tendermint/thinrelay/crypto/merkle"
	"github.com/tendermint/thinrelay/libs/log"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultThinRelayDir = ".thinrelay"
	defaultConfigDir    = "config"
	defaultDataDir      = "data"

	defaultConfigFileName = "config.toml"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Config defines the top level configuration for a relay node.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	ThinBlock       *ThinBlockConfig       `mapstructure:"thinblock"`
	RelayCache      *RelayCacheConfig      `mapstructure:"relay-cache"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a relay node.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		ThinBlock:       DefaultThinBlockConfig(),
		RelayCache:      DefaultRelayCacheConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		ThinBlock:       TestThinBlockConfig(),
		RelayCache:      TestRelayCacheConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.ThinBlock.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [thinblock] section: %w", err)
	}
	if err := cfg.RelayCache.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [relay-cache] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a relay node.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db-backend"`

	// Database directory
	DBPath string `mapstructure:"db-dir"`
}

// DefaultBaseConfig returns a default base configuration for a relay node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:  log.LogLevelInfo,
		LogFormat: log.LogFormatPlain,
		DBBackend: "goleveldb",
		DBPath:    defaultDataDir,
	}
}

// TestBaseConfig returns a base configuration for testing a relay node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DBBackend = "memdb"
	return cfg
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case log.LogFormatPlain, log.LogFormatText, log.LogFormatJSON:
	default:
		return errors.New("unknown log format (must be 'plain', 'text' or 'json')")
	}

	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported db-backend %q (must be 'goleveldb' or 'memdb')", cfg.DBBackend)
	}

	return nil
}

//-----------------------------------------------------------------------------
// ThinBlockConfig

// ThinBlockConfig defines the configuration for thin block reconstruction.
type ThinBlockConfig struct {
	// Largest transaction count a merkleblock may claim.
	MaxBlockTxs uint32 `mapstructure:"max-block-txs"`

	// Capacity of the reactor's inbound event queue.
	EventQueueSize int `mapstructure:"event-queue-size"`
}

// DefaultThinBlockConfig returns a default configuration for thin blocks.
func DefaultThinBlockConfig() *ThinBlockConfig {
	return &ThinBlockConfig{
		MaxBlockTxs:    merkle.DefaultMaxTransactions,
		EventQueueSize: 1024,
	}
}

// TestThinBlockConfig returns a configuration for testing thin blocks.
func TestThinBlockConfig() *ThinBlockConfig {
	cfg := DefaultThinBlockConfig()
	cfg.EventQueueSize = 16
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *ThinBlockConfig) ValidateBasic() error {
	if cfg.MaxBlockTxs == 0 {
		return errors.New("max-block-txs can't be zero")
	}
	if cfg.EventQueueSize < 0 {
		return errors.New("event-queue-size can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// RelayCacheConfig

// RelayCacheConfig defines the configuration for the cache of recently
// relayed transactions.
type RelayCacheConfig struct {
	// Maximum number of transactions kept.
	Size int `mapstructure:"size"`

	// How long a transaction stays in the cache after it was last seen.
	Timeout time.Duration `mapstructure:"timeout"`

	// How often expired transactions are swept.
	ExpireInterval time.Duration `mapstructure:"expire-interval"`
}

// DefaultRelayCacheConfig returns a default configuration for the relay cache.
func DefaultRelayCacheConfig() *RelayCacheConfig {
	return &RelayCacheConfig{
		Size:           100000,
		Timeout:        15 * time.Minute,
		ExpireInterval: time.Minute,
	}
}

// TestRelayCacheConfig returns a configuration for testing the relay cache.
func TestRelayCacheConfig() *RelayCacheConfig {
	return &RelayCacheConfig{
		Size:           1000,
		Timeout:        time.Minute,
		ExpireInterval: 100 * time.Millisecond,
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *RelayCacheConfig) ValidateBasic() error {
	if cfg.Size <= 0 {
		return errors.New("size must be positive")
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if cfg.ExpireInterval <= 0 {
		return errors.New("expire-interval must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max-open-connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "thinrelay",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max-open-connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

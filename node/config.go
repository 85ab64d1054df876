// Package node assembles a plasma client from its configuration: logger,
// metrics, signature cache, child chain and typed-data signer.
package node

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/childchain"
	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/eip712"
	"github.com/eth2030/plasma/exit"
	"github.com/eth2030/plasma/log"
	"github.com/eth2030/plasma/merkle"
)

var ErrInvalidConfig = errors.New("config: invalid value")

// Config holds all configuration for a plasma client.
type Config struct {
	Chain   ChainConfig   `toml:"chain"`
	Signing SigningConfig `toml:"signing"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
	Cache   CacheConfig   `toml:"cache"`
}

// ChainConfig describes the child chain being tracked.
type ChainConfig struct {
	// Operator is the hex address allowed to sign child blocks.
	Operator string `toml:"operator"`
	// ChildBlockInterval is the spacing between operator block numbers.
	ChildBlockInterval uint64 `toml:"child_block_interval"`
	// MerkleDepth is the default depth for ad-hoc Merkle trees.
	MerkleDepth int `toml:"merkle_depth"`
	// PriorityScheme selects the exit priority layout (legacy, current).
	PriorityScheme string `toml:"priority_scheme"`
}

// SigningConfig is the EIP-712 domain used for typed transaction hashes.
type SigningConfig struct {
	Name              string `toml:"name"`
	Version           string `toml:"version"`
	VerifyingContract string `toml:"verifying_contract"`
	Salt              string `toml:"salt"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// CacheConfig sizes in-memory caches.
type CacheConfig struct {
	SignerCacheSize int `toml:"signer_cache_size"`
}

// DefaultConfig returns a Config with the values used by the deployed
// contracts.
func DefaultConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			Operator:           common.Address{}.Hex(),
			ChildBlockInterval: childchain.DefaultChildBlockInterval,
			MerkleDepth:        16,
			PriorityScheme:     exit.CurrentScheme.Name,
		},
		Signing: SigningConfig{
			Name:              eip712.DefaultName,
			Version:           eip712.DefaultVersion,
			VerifyingContract: common.Address{}.Hex(),
			Salt:              eip712.DefaultSalt.Hex(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: log.FormatText,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "plasma",
		},
		Cache: CacheConfig{
			SignerCacheSize: crypto.DefaultSignerCacheSize,
		},
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if _, err := c.OperatorAddress(); err != nil {
		return err
	}
	if c.Chain.ChildBlockInterval == 0 {
		return errors.Wrap(ErrInvalidConfig, "chain.child_block_interval must be positive")
	}
	if c.Chain.MerkleDepth < 1 || c.Chain.MerkleDepth > merkle.MaxDepth {
		return errors.Wrapf(ErrInvalidConfig, "chain.merkle_depth %d not in [1, %d]", c.Chain.MerkleDepth, merkle.MaxDepth)
	}
	if _, err := c.Scheme(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := c.Domain(); err != nil {
		return err
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case log.FormatText, log.FormatJSON, log.FormatColor:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log format %q", c.Log.Format)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.Wrap(ErrInvalidConfig, "metrics.namespace must be set when metrics are enabled")
	}
	if c.Cache.SignerCacheSize < 0 {
		return errors.Wrapf(ErrInvalidConfig, "cache.signer_cache_size %d", c.Cache.SignerCacheSize)
	}
	return nil
}

// OperatorAddress parses Chain.Operator.
func (c *Config) OperatorAddress() (common.Address, error) {
	addr, err := crypto.ParseAddress(c.Chain.Operator)
	if err != nil {
		return common.Address{}, errors.Wrapf(ErrInvalidConfig, "chain.operator: %v", err)
	}
	return addr, nil
}

// Scheme returns the configured exit priority scheme.
func (c *Config) Scheme() (exit.PriorityScheme, error) {
	return exit.SchemeByName(c.Chain.PriorityScheme)
}

// Domain returns the configured EIP-712 domain.
func (c *Config) Domain() (eip712.Domain, error) {
	contract, err := crypto.ParseAddress(c.Signing.VerifyingContract)
	if err != nil {
		return eip712.Domain{}, errors.Wrapf(ErrInvalidConfig, "signing.verifying_contract: %v", err)
	}
	salt, err := hexutil.Decode(c.Signing.Salt)
	if err != nil || len(salt) != common.HashLength {
		return eip712.Domain{}, errors.Wrapf(ErrInvalidConfig, "signing.salt %q", c.Signing.Salt)
	}
	return eip712.Domain{
		Name:              c.Signing.Name,
		Version:           c.Signing.Version,
		VerifyingContract: contract,
		Salt:              common.BytesToHash(salt),
	}, nil
}

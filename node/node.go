package node

import (
	"crypto/ecdsa"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pkg/errors"

	"github.com/eth2030/plasma/childchain"
	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/eip712"
	"github.com/eth2030/plasma/exit"
	"github.com/eth2030/plasma/log"
	"github.com/eth2030/plasma/metrics"
)

// Node is a configured plasma client.
type Node struct {
	Config  *Config
	Logger  *log.Logger
	Metrics *metrics.Registry
	// Prometheus is nil unless metrics are enabled.
	Prometheus *prometheus.Registry
	Signers    *crypto.SignerCache
	Chain      *childchain.ChildChain
	Typed      *eip712.Signer
	Scheme     exit.PriorityScheme
}

// New validates cfg and builds a node whose logs go to logOut.
func New(cfg *Config, logOut io.Writer) (*Node, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := log.NewWithFormat(logOut, log.SlogLevel(cfg.Log.Level), cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	operator, err := cfg.OperatorAddress()
	if err != nil {
		return nil, err
	}
	domain, err := cfg.Domain()
	if err != nil {
		return nil, err
	}
	typed, err := eip712.NewSigner(&domain, nil)
	if err != nil {
		return nil, err
	}
	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, err
	}

	n := &Node{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRegistry(),
		Signers: crypto.NewSignerCache(cfg.Cache.SignerCacheSize),
		Typed:   typed,
		Scheme:  scheme,
	}
	if cfg.Metrics.Enabled {
		n.Prometheus = prometheus.NewRegistry()
		if err := metrics.Register(n.Prometheus, cfg.Metrics.Namespace, n.Metrics); err != nil {
			return nil, errors.Wrap(err, "node: register metrics")
		}
	}
	n.Chain = childchain.New(childchain.Config{
		Operator:           operator,
		ChildBlockInterval: cfg.Chain.ChildBlockInterval,
		Signers:            n.Signers,
		Logger:             logger,
		Metrics:            metrics.NewChainMetrics(n.Metrics),
	})
	logger.Module("node").Info("Node created", "operator", operator, "interval", cfg.Chain.ChildBlockInterval,
		"scheme", scheme.Name, "metrics", cfg.Metrics.Enabled)
	return n, nil
}

// Operator returns an operator for the node's chain signing with key.
func (n *Node) Operator(key *ecdsa.PrivateKey, root childchain.RootChain) (*childchain.Operator, error) {
	return childchain.NewOperator(n.Chain, key, root)
}

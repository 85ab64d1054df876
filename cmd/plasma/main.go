// Command plasma is the operator and tester toolbox for the plasma child
// chain. It encodes and decodes UTXO positions, transactions and exit
// priorities, builds Merkle proofs and computes typed-data hashes.
//
// Usage:
//
//	plasma [--config file] [--log.level level] [--log.format format] <command>
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/log"
	"github.com/eth2030/plasma/node"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// cli carries the resolved configuration into subcommands.
type cli struct {
	flags  globalFlags
	config *node.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	c := new(cli)
	root := &cobra.Command{
		Use:           "plasma",
		Short:         "Plasma child chain toolbox",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "TOML configuration file")
	pf.StringVar(&c.flags.logLevel, "log.level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&c.flags.logFormat, "log.format", "", "Log format: text, json, color (overrides config)")

	root.AddCommand(
		c.addressCmd(),
		c.utxoCmd(),
		c.txCmd(),
		c.merkleCmd(),
		c.priorityCmd(),
		c.typedHashCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg := node.DefaultConfig()
	if c.flags.configPath != "" {
		loaded, err := node.LoadConfig(c.flags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.flags.logLevel != "" {
		cfg.Log.Level = c.flags.logLevel
	}
	if c.flags.logFormat != "" {
		cfg.Log.Format = c.flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := log.NewWithFormat(cmd.ErrOrStderr(), log.SlogLevel(cfg.Log.Level), cfg.Log.Format)
	if err != nil {
		return err
	}
	log.SetDefault(logger)
	c.config = cfg
	c.logger = logger.Module("cli")
	c.logger.Debug("Configuration loaded", "path", c.flags.configPath, "command", cmd.CommandPath())
	return nil
}

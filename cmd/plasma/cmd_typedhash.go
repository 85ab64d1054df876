package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/eip712"
)

func (c *cli) typedHashCmd() *cobra.Command {
	var (
		metadata string
		contract string
	)
	cmd := &cobra.Command{
		Use:   "typedhash <tx.json>",
		Short: "Print the EIP-712 hash of a transaction under the configured domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := c.config.Domain()
			if err != nil {
				return err
			}
			if contract != "" {
				domain.VerifyingContract = common.HexToAddress(contract)
			}
			var meta common.Hash
			if metadata != "" {
				b, err := hexutil.Decode(metadata)
				if err != nil || len(b) > common.HashLength {
					return errors.Errorf("metadata %q is not a 32-byte hex value", metadata)
				}
				meta = common.BytesToHash(b)
			}
			signer, err := eip712.NewSigner(&domain, nil)
			if err != nil {
				return err
			}
			tx, err := readTx(cmd, args[0])
			if err != nil {
				return err
			}
			h, err := signer.Hash(tx, meta)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&metadata, "metadata", "", "32-byte metadata field, hex")
	cmd.Flags().StringVar(&contract, "contract", "", "Verifying contract (overrides config)")
	return cmd
}

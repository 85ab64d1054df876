package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/crypto"
)

func (c *cli) addressCmd() *cobra.Command {
	var checksum bool
	normalize := &cobra.Command{
		Use:   "normalize <hex>",
		Short: "Normalize a plain or checksummed address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := crypto.ParseAddress(args[0])
			if err != nil {
				return err
			}
			if checksum {
				fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(crypto.ChecksumAddress(addr)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
			return nil
		},
	}
	normalize.Flags().BoolVar(&checksum, "checksum", false, "Print the 24-byte checksummed form")

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Address utilities",
	}
	cmd.AddCommand(normalize)
	return cmd
}

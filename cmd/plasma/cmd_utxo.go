package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/core/types"
)

func (c *cli) utxoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "utxo",
		Short: "Encode and decode UTXO positions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "encode <blknum> <txindex> <oindex>",
		Short: "Pack a (block, tx, output) triple into a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			blknum, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return errors.Wrap(err, "blknum")
			}
			txindex, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return errors.Wrap(err, "txindex")
			}
			oindex, err := strconv.ParseUint(args[2], 10, 8)
			if err != nil {
				return errors.Wrap(err, "oindex")
			}
			pos, err := types.EncodeUTXOPos(blknum, uint32(txindex), uint8(oindex))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pos)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <pos>",
		Short: "Split a position into block, tx and output index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return errors.Wrap(err, "pos")
			}
			blknum, txindex, oindex, err := types.DecodeUTXOPos(pos)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "blknum=%d txindex=%d oindex=%d\n", blknum, txindex, oindex)
			return nil
		},
	})
	return cmd
}

package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/exit"
)

func (c *cli) priorityCmd() *cobra.Command {
	var schemeName string
	cmd := &cobra.Command{
		Use:   "priority",
		Short: "Pack and unpack exit queue priorities",
	}
	cmd.PersistentFlags().StringVar(&schemeName, "scheme", "", "Priority scheme: legacy or current (default from config)")

	scheme := func() (exit.PriorityScheme, error) {
		if schemeName != "" {
			return exit.SchemeByName(schemeName)
		}
		return c.config.Scheme()
	}

	var (
		exitableAt uint64
		utxoPos    uint64
		txPos      uint64
		exitID     string
	)
	encode := &cobra.Command{
		Use:   "encode",
		Short: "Pack exitable-at, tx position and exit id into a priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := scheme()
			if err != nil {
				return err
			}
			p := exit.ExitPriority{ExitableAt: exitableAt, TxPos: txPos}
			if cmd.Flags().Changed("utxo-pos") {
				p.TxPos = exit.TxPos(utxoPos)
			}
			if exitID != "" {
				id, err := parseUint256(exitID)
				if err != nil {
					return errors.Wrap(err, "exit id")
				}
				p.ExitID = *id
			}
			v, err := s.Encode(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Dec())
			return nil
		},
	}
	f := encode.Flags()
	f.Uint64Var(&exitableAt, "exitable-at", 0, "Exitable-at timestamp")
	f.Uint64Var(&txPos, "tx-pos", 0, "Transaction position")
	f.Uint64Var(&utxoPos, "utxo-pos", 0, "UTXO position, converted to a tx position")
	f.StringVar(&exitID, "exit-id", "", "Exit id, decimal or 0x hex")
	cmd.AddCommand(encode)

	cmd.AddCommand(&cobra.Command{
		Use:   "parse <priority>",
		Short: "Unpack a priority into its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scheme()
			if err != nil {
				return err
			}
			v, err := parseUint256(args[0])
			if err != nil {
				return errors.Wrap(err, "priority")
			}
			p, err := s.Parse(v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exitable_at=%d tx_pos=%d exit_id=%s\n", p.ExitableAt, p.TxPos, p.ExitID.Dec())
			return nil
		},
	})
	return cmd
}


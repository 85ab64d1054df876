package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/core/types"
)

func (c *cli) txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Encode, hash, sign and decode transactions",
		Long: `Transactions are described as JSON, passed inline, as a file path or
"-" for stdin:

  {"inputs":[{"blknum":1000,"txindex":0,"oindex":0}],
   "outputs":[{"owner":"0x..","token":"0x..","amount":"10"}],
   "signatures":["0x.."]}`,
	}
	cmd.AddCommand(c.txEncodeCmd(), c.txHashCmd(), c.txSignCmd(), c.txDecodeCmd())
	return cmd
}

func (c *cli) txEncodeCmd() *cobra.Command {
	var signed bool
	cmd := &cobra.Command{
		Use:   "encode <tx.json>",
		Short: "Print the RLP encoding of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := readTx(cmd, args[0])
			if err != nil {
				return err
			}
			enc := tx.Encoded()
			if signed {
				enc = tx.EncodedSigned()
			}
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(enc))
			return nil
		},
	}
	cmd.Flags().BoolVar(&signed, "signed", false, "Include the signatures")
	return cmd
}

func (c *cli) txHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <tx.json>",
		Short: "Print the transaction hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := readTx(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tx.Hash().Hex())
			return nil
		},
	}
}

func (c *cli) txSignCmd() *cobra.Command {
	var (
		keyHex string
		index  int
	)
	cmd := &cobra.Command{
		Use:   "sign <tx.json>",
		Short: "Sign one input slot and print the signed transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyHex == "" {
				return errors.New("--key is required")
			}
			key, err := gethcrypto.HexToECDSA(trimHexPrefix(keyHex))
			if err != nil {
				return errors.Wrap(err, "key")
			}
			tx, err := readTx(cmd, args[0])
			if err != nil {
				return err
			}
			if err := tx.Sign(index, key); err != nil {
				return err
			}
			c.logger.Debug("Signed transaction", "hash", tx.Hash(), "index", index)
			return writeJSON(cmd.OutOrStdout(), describeTx(tx))
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex-encoded secp256k1 private key")
	cmd.Flags().IntVar(&index, "index", 0, "Signature slot to fill")
	return cmd
}

func (c *cli) txDecodeCmd() *cobra.Command {
	var unsigned bool
	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode an RLP transaction into its JSON description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hexutil.Decode(args[0])
			if err != nil {
				return errors.Wrap(err, "hex")
			}
			var tx *types.Transaction
			if unsigned {
				tx, err = types.DecodeUnsignedTransaction(raw)
			} else {
				tx, err = types.DecodeTransaction(raw)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), describeTx(tx))
		},
	}
	cmd.Flags().BoolVar(&unsigned, "unsigned", false, "Input carries no signatures")
	return cmd
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

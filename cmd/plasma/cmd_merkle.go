package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/crypto"
	"github.com/eth2030/plasma/merkle"
)

func (c *cli) merkleCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "merkle",
		Short: "Build fixed-depth Merkle roots and proofs over hex leaves",
	}
	cmd.PersistentFlags().IntVar(&depth, "depth", 0, "Tree depth (default from config)")

	build := func(args []string) (*merkle.FixedMerkle, error) {
		d := depth
		if d == 0 {
			d = c.config.Chain.MerkleDepth
		}
		leaves := make([][]byte, len(args))
		for i, a := range args {
			b, err := hexutil.Decode(a)
			if err != nil {
				return nil, errors.Wrapf(err, "leaf %d", i)
			}
			leaves[i] = b
		}
		return merkle.New(d, leaves)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "root [leaf...]",
		Short: "Print the root over the given leaves",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := build(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree.Root().Hex())
			return nil
		},
	})

	var index int
	proof := &cobra.Command{
		Use:   "proof <leaf...>",
		Short: "Print the membership proof for the leaf at --index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := build(args)
			if err != nil {
				return err
			}
			p, err := tree.ProofAt(index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(p))
			return nil
		},
	}
	proof.Flags().IntVar(&index, "index", 0, "Leaf index")
	cmd.AddCommand(proof)

	var verifyIndex int
	verify := &cobra.Command{
		Use:   "verify <root> <leaf> <proof>",
		Short: "Check a proof against a root",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			leaf, err := hexutil.Decode(args[1])
			if err != nil {
				return errors.Wrap(err, "leaf")
			}
			p, err := hexutil.Decode(args[2])
			if err != nil {
				return errors.Wrap(err, "proof")
			}
			root := common.HexToHash(args[0])
			ok := merkle.VerifyProof(root, crypto.Keccak256Hash(leaf), verifyIndex, p)
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			if !ok {
				return errors.New("proof does not match root")
			}
			return nil
		},
	}
	verify.Flags().IntVar(&verifyIndex, "index", 0, "Leaf index")
	cmd.AddCommand(verify)
	return cmd
}

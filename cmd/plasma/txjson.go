package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eth2030/plasma/core/types"
	"github.com/eth2030/plasma/crypto"
)

// txJSON is the command-line description of a transaction. Missing slots
// are padded; amounts and ids are decimal or 0x-prefixed hex.
type txJSON struct {
	Inputs     []inputJSON  `json:"inputs"`
	Outputs    []outputJSON `json:"outputs"`
	Signatures []string     `json:"signatures,omitempty"`
}

type inputJSON struct {
	Blknum  uint64 `json:"blknum"`
	Txindex uint32 `json:"txindex"`
	Oindex  uint8  `json:"oindex"`
}

type outputJSON struct {
	Owner    string   `json:"owner"`
	Token    string   `json:"token,omitempty"`
	Amount   string   `json:"amount,omitempty"`
	TokenIDs []string `json:"tokenIds,omitempty"`
}

// readTx loads a transaction description from an inline JSON object, a file
// path, or stdin when arg is "-".
func readTx(cmd *cobra.Command, arg string) (*types.Transaction, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(strings.TrimSpace(arg), "{"):
		data = []byte(arg)
	case arg == "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	default:
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read transaction")
	}
	var desc txJSON
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, errors.Wrap(err, "parse transaction")
	}
	return desc.transaction()
}

func (d *txJSON) transaction() (*types.Transaction, error) {
	inputs := make([]types.TransactionInput, len(d.Inputs))
	for i, in := range d.Inputs {
		inputs[i] = types.NewTransactionInput(in.Blknum, in.Txindex, in.Oindex)
	}
	outputs := make([]types.TransactionOutput, len(d.Outputs))
	for i, out := range d.Outputs {
		o, err := out.output()
		if err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
		outputs[i] = o
	}
	sigs := make([]crypto.Signature, len(d.Signatures))
	for i, s := range d.Signatures {
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, errors.Wrapf(err, "signature %d", i)
		}
		if sigs[i], err = crypto.BytesToSignature(b); err != nil {
			return nil, errors.Wrapf(err, "signature %d", i)
		}
	}
	return types.NewTransaction(inputs, outputs, sigs)
}

func (o *outputJSON) output() (types.TransactionOutput, error) {
	owner, err := crypto.ParseAddress(o.Owner)
	if err != nil {
		return types.TransactionOutput{}, errors.Wrap(err, "owner")
	}
	token := types.DefaultOutput.Token
	if o.Token != "" {
		if token, err = crypto.ParseAddress(o.Token); err != nil {
			return types.TransactionOutput{}, errors.Wrap(err, "token")
		}
	}
	if len(o.TokenIDs) > 0 {
		if o.Amount != "" {
			return types.TransactionOutput{}, errors.New("amount and tokenIds are exclusive")
		}
		ids := make([]*uint256.Int, len(o.TokenIDs))
		for i, s := range o.TokenIDs {
			if ids[i], err = parseUint256(s); err != nil {
				return types.TransactionOutput{}, errors.Wrapf(err, "token id %d", i)
			}
		}
		return types.NewNonFungibleOutput(owner, token, ids), nil
	}
	amount := new(uint256.Int)
	if o.Amount != "" {
		if amount, err = parseUint256(o.Amount); err != nil {
			return types.TransactionOutput{}, errors.Wrap(err, "amount")
		}
	}
	return types.NewFungibleOutput(owner, token, amount), nil
}

// describeTx is the inverse of txJSON.transaction, listing every slot.
func describeTx(tx *types.Transaction) *txJSON {
	d := new(txJSON)
	for _, in := range tx.Inputs {
		d.Inputs = append(d.Inputs, inputJSON{Blknum: in.Blknum, Txindex: in.Txindex, Oindex: in.Oindex})
	}
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		o := outputJSON{Owner: out.Owner.Hex(), Token: out.Token.Hex()}
		if out.IsFungible() {
			o.Amount = out.Amount.Dec()
		} else {
			for _, id := range out.TokenIDs {
				o.TokenIDs = append(o.TokenIDs, id.Dec())
			}
		}
		d.Outputs = append(d.Outputs, o)
	}
	for _, sig := range tx.Signatures {
		d.Signatures = append(d.Signatures, sig.Hex())
	}
	return d
}

func parseUint256(s string) (*uint256.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return uint256.FromHex(s)
	}
	return uint256.FromDecimal(s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Copyright 2021 Hailiang Zhao <hliangzhao@zju.edu.cn>
// This file is part of the lightChain.
//
// The lightChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The lightChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the lightChain. If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"emberchain/address"
)

// coinbaseReward is the fixed reward paid to the miner of a block. There is
// no fee market and no supply schedule.
const coinbaseReward = 100

// TXInput is a reference to a previous Transaction's output, plus the
// signature and public key authorizing the spend. For a coinbase input,
// TxId is empty, VoutIdx is -1, PubKey carries arbitrary coinbase data and
// Signature is empty.
type TXInput struct {
	TxId      []byte
	VoutIdx   int32
	Signature []byte
	PubKey    []byte
}

// UsesKey reports whether the input was signed by the holder of pubKeyHash.
func (in *TXInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(HashPubKey(in.PubKey), pubKeyHash)
}

// TXOutput is a locked, spendable quantity of coin.
type TXOutput struct {
	Value      int32
	PubKeyHash []byte
}

// Lock sets out's PubKeyHash from addr.
func (out *TXOutput) Lock(addr string) error {
	pubKeyHash, err := address.Decode(addr)
	if err != nil {
		return err
	}
	out.PubKeyHash = pubKeyHash
	return nil
}

// IsLockedWithKey reports whether out is spendable by pubKeyHash.
func (out *TXOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// NewTxOutput creates a TXOutput of value locked to addr.
func NewTxOutput(value int32, addr string) (*TXOutput, error) {
	out := &TXOutput{Value: value}
	if err := out.Lock(addr); err != nil {
		return nil, err
	}
	return out, nil
}

// TXOutputs is the set of a transaction's outputs, indexed by their
// original Vout position. Positions are never compacted: callers index
// into this slice with the same Vout the chain recorded.
type TXOutputs struct {
	Outputs []TXOutput
}

// Transaction moves value between UTXOs: Vin spends prior outputs, Vout
// creates new ones.
type Transaction struct {
	Id   []byte
	Vin  []TXInput
	Vout []TXOutput
}

// IsCoinbaseTx reports whether tx is a coinbase transaction.
func (tx *Transaction) IsCoinbaseTx() bool {
	return len(tx.Vin) == 1 && len(tx.Vin[0].TxId) == 0 && tx.Vin[0].VoutIdx == -1
}

// Serialize returns the gob-encoded bytes of tx.
func (tx Transaction) Serialize() []byte {
	return gobEncode(tx)
}

// DeserializeTx decodes a Transaction from its gob-encoded bytes.
func DeserializeTx(data []byte) *Transaction {
	var tx Transaction
	gobDecode(data, &tx)
	return &tx
}

// Hash returns hex(sha256(serialize(tx))) computed on a copy of tx with Id
// cleared; Id holds the hex-decoded bytes of this value.
func (tx *Transaction) Hash() string {
	txCopy := *tx
	txCopy.Id = []byte{}
	return hex.EncodeToString(sha256Sum(txCopy.Serialize()))
}

// copyTrimmed returns a value-copy of tx with every input's Signature and
// PubKey cleared — the "trim copy" used by both Sign and Verify.
func (tx *Transaction) copyTrimmed() Transaction {
	vin := make([]TXInput, len(tx.Vin))
	for i, in := range tx.Vin {
		vin[i] = TXInput{TxId: in.TxId, VoutIdx: in.VoutIdx}
	}
	vout := make([]TXOutput, len(tx.Vout))
	copy(vout, tx.Vout)
	return Transaction{Id: tx.Id, Vin: vin, Vout: vout}
}

// Sign signs every non-coinbase input of tx. prevTxs maps hex-encoded txid
// to the transaction it names, for every input tx references.
func (tx *Transaction) Sign(private ed25519.PrivateKey, prevTxs map[string]Transaction) error {
	if tx.IsCoinbaseTx() {
		return nil
	}
	for _, in := range tx.Vin {
		prevTx, ok := prevTxs[hex.EncodeToString(in.TxId)]
		if !ok || prevTx.Id == nil {
			return ErrMissingPrevTx
		}
	}

	trimmed := tx.copyTrimmed()
	for i, in := range trimmed.Vin {
		prevTx := prevTxs[hex.EncodeToString(in.TxId)]
		if int(in.VoutIdx) < 0 || int(in.VoutIdx) >= len(prevTx.Vout) {
			return ErrCorruptPrevTx
		}
		trimmed.Vin[i].Signature = nil
		trimmed.Vin[i].PubKey = prevTx.Vout[in.VoutIdx].PubKeyHash
		digest, err := hex.DecodeString(trimmed.Hash())
		if err != nil {
			return err
		}
		trimmed.Id = digest
		trimmed.Vin[i].PubKey = nil

		tx.Vin[i].Signature = Sign(trimmed.Id, private)
	}
	return nil
}

// Verify checks the signature of every non-coinbase input of tx against
// prevTxs, the transactions its inputs reference.
func (tx *Transaction) Verify(prevTxs map[string]Transaction) (bool, error) {
	if tx.IsCoinbaseTx() {
		return true, nil
	}
	for _, in := range tx.Vin {
		prevTx, ok := prevTxs[hex.EncodeToString(in.TxId)]
		if !ok || prevTx.Id == nil {
			return false, ErrMissingPrevTx
		}
	}

	trimmed := tx.copyTrimmed()
	for i, in := range tx.Vin {
		prevTx := prevTxs[hex.EncodeToString(in.TxId)]
		if int(in.VoutIdx) < 0 || int(in.VoutIdx) >= len(prevTx.Vout) {
			return false, ErrCorruptPrevTx
		}
		trimmed.Vin[i].Signature = nil
		trimmed.Vin[i].PubKey = prevTx.Vout[in.VoutIdx].PubKeyHash
		digest, err := hex.DecodeString(trimmed.Hash())
		if err != nil {
			return false, err
		}
		trimmed.Id = digest
		trimmed.Vin[i].PubKey = nil

		if !VerifySignature(trimmed.Id, in.PubKey, in.Signature) {
			return false, nil
		}
	}
	return true, nil
}

// String formats tx for debugging/printing.
func (tx Transaction) String() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("TxId: %x", tx.Id))
	for i, in := range tx.Vin {
		lines = append(lines, fmt.Sprintf("  Vin#%d TxId:%x VoutIdx:%d Signature:%x PubKey:%x",
			i, in.TxId, in.VoutIdx, in.Signature, in.PubKey))
	}
	for i, out := range tx.Vout {
		lines = append(lines, fmt.Sprintf("  Vout#%d Value:%d PubKeyHash:%x", i, out.Value, out.PubKeyHash))
	}
	return strings.Join(lines, "\n")
}

// NewCoinbaseTx creates the (always first) coinbase transaction of a block,
// paying coinbaseReward to dstAddr. If data is empty it defaults to
// "Reward to '<dstAddr>'".
func NewCoinbaseTx(dstAddr, data string) (*Transaction, error) {
	if data == "" {
		data = fmt.Sprintf("Reward to '%s'", dstAddr)
	}
	in := TXInput{TxId: []byte{}, VoutIdx: -1, PubKey: []byte(data)}
	out, err := NewTxOutput(coinbaseReward, dstAddr)
	if err != nil {
		return nil, err
	}
	tx := Transaction{Vin: []TXInput{in}, Vout: []TXOutput{*out}}
	id, err := hex.DecodeString(tx.Hash())
	if err != nil {
		return nil, err
	}
	tx.Id = id
	return &tx, nil
}

// spendableSource is the minimal query surface new_utxo needs from the
// UTXO index, so this file does not import core's own UTXOSet directly.
type spendableSource interface {
	FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int32, error)
}

// NewUTXOTx builds, signs and returns a transaction moving amount from
// wallet to dstAddr, funded from utxoSource. Fails with
// ErrInsufficientFunds when the wallet's spendable outputs fall short.
func NewUTXOTx(wallet *Wallet, dstAddr string, amount int32, utxoSource spendableSource, signer func(*Transaction) error) (*Transaction, error) {
	pubKeyHash := HashPubKey(wallet.PubKey)
	srcAddr := address.Encode(pubKeyHash)

	accumulated, spendable, err := utxoSource.FindSpendableOutputs(pubKeyHash, amount)
	if err != nil {
		return nil, err
	}
	if accumulated < amount {
		return nil, ErrInsufficientFunds
	}

	var vin []TXInput
	for txId, outIdxs := range spendable {
		decodedTxId, err := hex.DecodeString(txId)
		if err != nil {
			return nil, err
		}
		for _, outIdx := range outIdxs {
			vin = append(vin, TXInput{TxId: decodedTxId, VoutIdx: outIdx, PubKey: wallet.PubKey})
		}
	}

	toOut, err := NewTxOutput(amount, dstAddr)
	if err != nil {
		return nil, err
	}
	vout := []TXOutput{*toOut}
	if accumulated > amount {
		changeOut, err := NewTxOutput(accumulated-amount, srcAddr)
		if err != nil {
			return nil, err
		}
		vout = append(vout, *changeOut)
	}

	tx := Transaction{Vin: vin, Vout: vout}
	id, err := hex.DecodeString(tx.Hash())
	if err != nil {
		return nil, err
	}
	tx.Id = id

	if err := signer(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

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
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCoinbaseTxIsCoinbase(t *testing.T) {
	wallet := NewWallet()
	tx, err := NewCoinbaseTx(wallet.Address(), "")
	require.NoError(t, err)
	require.True(t, tx.IsCoinbaseTx())
	require.Equal(t, int32(coinbaseReward), tx.Vout[0].Value)
	require.Contains(t, string(tx.Vin[0].PubKey), wallet.Address())
}

func TestTransactionSerializeRoundTrip(t *testing.T) {
	wallet := NewWallet()
	tx, err := NewCoinbaseTx(wallet.Address(), "data")
	require.NoError(t, err)

	decoded := DeserializeTx(tx.Serialize())
	require.Equal(t, tx.Id, decoded.Id)
	require.Equal(t, tx.Vout[0].Value, decoded.Vout[0].Value)
}

func TestTransactionHashIgnoresId(t *testing.T) {
	wallet := NewWallet()
	tx, err := NewCoinbaseTx(wallet.Address(), "data")
	require.NoError(t, err)

	want := tx.Hash()
	tx.Id = []byte("garbage")
	require.Equal(t, want, tx.Hash())
}

// fakeSpendableSource is a fixed single-output spendable source for
// exercising NewUTXOTx/Sign/Verify without a full chain.
type fakeSpendableSource struct {
	txId   string
	outIdx int32
	value  int32
}

func (f fakeSpendableSource) FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int32, error) {
	if f.value < amount {
		return f.value, map[string][]int32{f.txId: {f.outIdx}}, nil
	}
	return f.value, map[string][]int32{f.txId: {f.outIdx}}, nil
}

func TestNewUTXOTxSignAndVerify(t *testing.T) {
	sender := NewWallet()
	receiver := NewWallet()

	fundingOut, err := NewTxOutput(100, sender.Address())
	require.NoError(t, err)
	fundingTx := Transaction{Vout: []TXOutput{*fundingOut}}
	id, err := hex.DecodeString(fundingTx.Hash())
	require.NoError(t, err)
	fundingTx.Id = id

	source := fakeSpendableSource{txId: hex.EncodeToString(fundingTx.Id), outIdx: 0, value: 100}
	prevTxs := map[string]Transaction{hex.EncodeToString(fundingTx.Id): fundingTx}

	signer := func(tx *Transaction) error { return tx.Sign(sender.PrivateKey, prevTxs) }

	tx, err := NewUTXOTx(sender, receiver.Address(), 40, source, signer)
	require.NoError(t, err)
	require.Len(t, tx.Vout, 2)
	require.Equal(t, int32(40), tx.Vout[0].Value)
	require.Equal(t, int32(60), tx.Vout[1].Value)

	ok, err := tx.Verify(prevTxs)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTransactionVerifyRejectsTamperedOutput(t *testing.T) {
	sender := NewWallet()
	receiver := NewWallet()

	fundingOut, err := NewTxOutput(100, sender.Address())
	require.NoError(t, err)
	fundingTx := Transaction{Vout: []TXOutput{*fundingOut}}
	id, err := hex.DecodeString(fundingTx.Hash())
	require.NoError(t, err)
	fundingTx.Id = id

	source := fakeSpendableSource{txId: hex.EncodeToString(fundingTx.Id), outIdx: 0, value: 100}
	prevTxs := map[string]Transaction{hex.EncodeToString(fundingTx.Id): fundingTx}
	signer := func(tx *Transaction) error { return tx.Sign(sender.PrivateKey, prevTxs) }

	tx, err := NewUTXOTx(sender, receiver.Address(), 40, source, signer)
	require.NoError(t, err)

	tx.Vout[0].Value = 1000

	ok, err := tx.Verify(prevTxs)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCoinbaseTxAlwaysVerifies(t *testing.T) {
	wallet := NewWallet()
	tx, err := NewCoinbaseTx(wallet.Address(), "")
	require.NoError(t, err)

	ok, err := tx.Verify(nil)
	require.NoError(t, err)
	require.True(t, ok)
}

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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUTXOSetReindexMatchesUpdate(t *testing.T) {
	nodeId := testNodeId(t)
	sender := NewWallet()
	receiver := NewWallet()

	chain, err := CreateBlockChain(sender.Address(), nodeId)
	require.NoError(t, err)
	defer chain.Db.Close()

	set := UTXOSet{BlockChain: chain}
	require.NoError(t, set.Reindex())

	count, err := set.CountTransactions()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	tx, err := NewUTXOTx(sender, receiver.Address(), 25, set, func(tx *Transaction) error {
		return chain.SignTx(tx, sender.PrivateKey)
	})
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTx(receiver.Address(), "")
	require.NoError(t, err)

	block, err := chain.MineBlock([]*Transaction{coinbase, tx})
	require.NoError(t, err)
	require.NoError(t, set.Update(block))

	// Both sets share chain's database, so read the updated cache before
	// Reindex rebuilds it.
	afterUpdate, err := set.FindUTXO(HashPubKey(receiver.PubKey))
	require.NoError(t, err)

	fromReindex := UTXOSet{BlockChain: chain}
	require.NoError(t, fromReindex.Reindex())

	afterReindex, err := fromReindex.FindUTXO(HashPubKey(receiver.PubKey))
	require.NoError(t, err)

	require.ElementsMatch(t, afterUpdate, afterReindex)
}

func TestFindSpendableOutputsStopsAtAmount(t *testing.T) {
	nodeId := testNodeId(t)
	wallet := NewWallet()

	chain, err := CreateBlockChain(wallet.Address(), nodeId)
	require.NoError(t, err)
	defer chain.Db.Close()

	set := UTXOSet{BlockChain: chain}
	require.NoError(t, set.Reindex())

	accumulated, spendable, err := set.FindSpendableOutputs(HashPubKey(wallet.PubKey), 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, accumulated, int32(10))
	require.NotEmpty(t, spendable)
}

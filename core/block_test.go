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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGenesisBlock(t *testing.T) {
	coinbase, err := NewCoinbaseTx("1addr", "genesis")
	require.NoError(t, err)

	genesis := NewGenesisBlock(coinbase)
	require.Equal(t, 0, genesis.Height)
	require.Empty(t, genesis.PrevBlockHash)
	require.True(t, strings.HasPrefix(genesis.Hash, "0000"))
	require.True(t, genesis.Validate())
}

func TestBlockSerializeRoundTrip(t *testing.T) {
	coinbase, err := NewCoinbaseTx("1addr", "")
	require.NoError(t, err)
	block := NewBlock([]*Transaction{coinbase}, "deadbeef", 7)

	decoded := DeserializeBlock(block.Serialize())
	require.Equal(t, block.Hash, decoded.Hash)
	require.Equal(t, block.PrevBlockHash, decoded.PrevBlockHash)
	require.Equal(t, block.Height, decoded.Height)
	require.Equal(t, block.Nonce, decoded.Nonce)
	require.Equal(t, block.TimeStamp, decoded.TimeStamp)
}

func TestBlockHashIsPureFunctionOfFields(t *testing.T) {
	coinbase, err := NewCoinbaseTx("1addr", "fixed")
	require.NoError(t, err)

	b1 := &Block{TimeStamp: 1000, Transactions: []*Transaction{coinbase}, PrevBlockHash: "abc", Height: 3}
	b2 := &Block{TimeStamp: 1000, Transactions: []*Transaction{coinbase}, PrevBlockHash: "abc", Height: 3}

	pow1 := NewPoW(b1)
	pow2 := NewPoW(b2)
	require.Equal(t, pow1.prepareData(42), pow2.prepareData(42))
}

func TestBlockValidateDetectsTamper(t *testing.T) {
	coinbase, err := NewCoinbaseTx("1addr", "")
	require.NoError(t, err)
	block := NewBlock([]*Transaction{coinbase}, "", 0)
	require.True(t, block.Validate())

	block.Nonce++
	require.False(t, block.Validate())
}

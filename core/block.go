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

import "time"

// Block consists of a header (TimeStamp, PrevBlockHash, Hash, Height, Nonce)
// and its body (Transactions). Hash is the hex-encoded SHA-256 of
// serialize(PrevBlockHash, merkleRoot, TimeStamp, target, Nonce); the first
// `target` hex characters of Hash are always '0'.
type Block struct {
	TimeStamp     int64
	Transactions  []*Transaction
	PrevBlockHash string
	Hash          string
	Height        int
	Nonce         int
}

// NewBlock mines a new block carrying txs, extending prevBlockHash at
// height.
func NewBlock(txs []*Transaction, prevBlockHash string, height int) *Block {
	block := &Block{
		TimeStamp:     time.Now().UnixMilli(),
		Transactions:  txs,
		PrevBlockHash: prevBlockHash,
		Height:        height,
	}

	pow := NewPoW(block)
	nonce, hash := pow.Run()
	block.Nonce = nonce
	block.Hash = hash
	return block
}

// NewGenesisBlock returns the first block of the chain, carrying only
// coinbaseTx, at height 0 with an empty PrevBlockHash.
func NewGenesisBlock(coinbaseTx *Transaction) *Block {
	return NewBlock([]*Transaction{coinbaseTx}, "", 0)
}

// Serialize returns the gob-encoded bytes of block.
func (block *Block) Serialize() []byte {
	return gobEncode(block)
}

// DeserializeBlock decodes a Block from its gob-encoded bytes.
func DeserializeBlock(data []byte) *Block {
	var block Block
	gobDecode(data, &block)
	return &block
}

// merkleRoot returns the Merkle root over the block's transaction hex-ids,
// each leaf being the ASCII bytes of the hex-encoded id, not the decoded
// digest.
func (block *Block) merkleRoot() []byte {
	var leaves [][]byte
	for _, tx := range block.Transactions {
		leaves = append(leaves, []byte(tx.Hash()))
	}
	return NewMerkleTree(leaves).Root()
}

// Validate reports whether block's recorded hash/nonce actually satisfy
// the difficulty target.
func (block *Block) Validate() bool {
	return NewPoW(block).Validate()
}

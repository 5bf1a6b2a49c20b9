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
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
)

// target is the number of leading hex '0' characters a block hash must
// have to satisfy proof-of-work. There is no difficulty retargeting.
const target = 4

// maxNonce bounds the nonce search.
const maxNonce = math.MaxInt64

// ProofOfWork binds a Block to the target difficulty.
type ProofOfWork struct {
	block *Block
}

// NewPoW returns the ProofOfWork for block.
func NewPoW(block *Block) *ProofOfWork {
	return &ProofOfWork{block: block}
}

// prepareData joins the fields a block's hash is a pure function of:
// (prevBlockHash, merkleRoot, timestamp, target, nonce).
func (pow *ProofOfWork) prepareData(nonce int) []byte {
	return bytes.Join([][]byte{
		[]byte(pow.block.PrevBlockHash),
		pow.block.merkleRoot(),
		int2Hex(pow.block.TimeStamp),
		int2Hex(int64(target)),
		int2Hex(int64(nonce)),
	}, []byte{})
}

// Run searches for a nonce whose resulting hash has target leading hex
// zero characters, returning that nonce and hex hash.
func (pow *ProofOfWork) Run() (int, string) {
	var hashHex string
	nonce := 0

	for nonce < maxNonce {
		data := pow.prepareData(nonce)
		hashHex = hex.EncodeToString(sha256Sum(data))
		if hasTargetPrefix(hashHex) {
			break
		}
		nonce++
	}
	return nonce, hashHex
}

// Validate reports whether the block's recorded nonce actually satisfies
// the difficulty target.
func (pow *ProofOfWork) Validate() bool {
	data := pow.prepareData(pow.block.Nonce)
	hashHex := hex.EncodeToString(sha256Sum(data))
	return hashHex == pow.block.Hash && hasTargetPrefix(hashHex)
}

// hasTargetPrefix reports whether hashHex's first target characters are
// all '0'.
func hasTargetPrefix(hashHex string) bool {
	return strings.HasPrefix(hashHex, strings.Repeat("0", target))
}

// int2Hex converts an int64 into its big-endian byte representation.
func int2Hex(v int64) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, v)
	return buf.Bytes()
}

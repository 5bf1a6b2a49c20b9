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
	"encoding/gob"
	"log"
)

// gobEncode returns the gob-encoded bytes of e. Used for every persisted
// or hashed value in core: Block, Transaction, TXOutputs, Wallet.
func gobEncode(e interface{}) []byte {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(e); err != nil {
		log.Panic(err)
	}
	return buf.Bytes()
}

// gobDecode decodes data into e, the inverse of gobEncode.
func gobDecode(data []byte, e interface{}) {
	decoder := gob.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(e); err != nil {
		log.Panic(err)
	}
}

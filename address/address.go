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

/* Package address implements the base58 address codec used to turn a
public key hash into a human-presentable address and back. It has no
dependency on package core, so core consumes it only through the
functions below, never the reverse. */
package address

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"math/big"
)

const (
	version       = byte(0x00)
	checksumLen   = 4
	pubKeyHashLen = 20
)

var alphabet = []byte("123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz")
var base = int64(len(alphabet))

// ErrInvalidAddress is returned by Decode when addr fails its checksum or
// has the wrong payload shape.
var ErrInvalidAddress = errors.New("address: invalid address")

// Encode returns the base58 address for a 20-byte public-key hash.
func Encode(pubKeyHash []byte) string {
	versioned := append([]byte{version}, pubKeyHash...)
	checksum := checksumOf(versioned)
	full := append(versioned, checksum...)
	return string(base58Encode(full))
}

// Decode returns the 20-byte public-key hash carried by addr, or
// ErrInvalidAddress if the checksum does not verify.
func Decode(addr string) ([]byte, error) {
	full := base58Decode([]byte(addr))
	if len(full) < 1+pubKeyHashLen+checksumLen {
		return nil, ErrInvalidAddress
	}
	versioned := full[:len(full)-checksumLen]
	wantChecksum := full[len(full)-checksumLen:]
	gotChecksum := checksumOf(versioned)
	if !bytes.Equal(wantChecksum, gotChecksum) {
		return nil, ErrInvalidAddress
	}
	return versioned[1:], nil
}

// Validate reports whether addr decodes to a correctly checksummed
// public-key hash.
func Validate(addr string) bool {
	_, err := Decode(addr)
	return err == nil
}

// checksumOf returns the 4-byte double-SHA256 checksum of payload.
func checksumOf(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// base58Encode returns the base58 encoding of input.
func base58Encode(input []byte) []byte {
	var encoded []byte
	x := new(big.Int).SetBytes(input)
	baseInt := big.NewInt(base)
	zero := big.NewInt(0)
	mod := new(big.Int)

	for x.Cmp(zero) != 0 {
		x.DivMod(x, baseInt, mod)
		encoded = append(encoded, alphabet[mod.Int64()])
	}
	reverse(encoded)

	for _, b := range input {
		if b != 0x00 {
			break
		}
		encoded = append([]byte{alphabet[0]}, encoded...)
	}
	return encoded
}

// base58Decode returns the raw bytes encoded by a base58 input.
func base58Decode(input []byte) []byte {
	result := big.NewInt(0)
	leadingZeros := 0
	for _, b := range input {
		if b != alphabet[0] {
			break
		}
		leadingZeros++
	}

	baseInt := big.NewInt(base)
	for _, b := range input {
		idx := bytes.IndexByte(alphabet, b)
		if idx < 0 {
			continue
		}
		result.Mul(result, baseInt)
		result.Add(result, big.NewInt(int64(idx)))
	}

	decoded := result.Bytes()
	return append(bytes.Repeat([]byte{0x00}, leadingZeros), decoded...)
}

// reverse reverses data in place.
func reverse(data []byte) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

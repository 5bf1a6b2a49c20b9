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

package address

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pubKeyHash := bytes.Repeat([]byte{0x07}, pubKeyHashLen)
	addr := Encode(pubKeyHash)

	decoded, err := Decode(addr)
	require.NoError(t, err)
	require.Equal(t, pubKeyHash, decoded)
	require.True(t, Validate(addr))
}

func TestEncodeDecodeRoundTripWithLeadingZeroHash(t *testing.T) {
	pubKeyHash := append([]byte{0x00, 0x00}, bytes.Repeat([]byte{0x11}, pubKeyHashLen-2)...)
	addr := Encode(pubKeyHash)

	decoded, err := Decode(addr)
	require.NoError(t, err)
	require.Equal(t, pubKeyHash, decoded)
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	pubKeyHash := bytes.Repeat([]byte{0x09}, pubKeyHashLen)
	addr := Encode(pubKeyHash)
	tampered := addr[:len(addr)-1] + "9"
	if tampered == addr {
		tampered = addr[:len(addr)-1] + "8"
	}

	_, err := Decode(tampered)
	require.ErrorIs(t, err, ErrInvalidAddress)
	require.False(t, Validate(tampered))
}

func TestDecodeRejectsTooShort(t *testing.T) {
	_, err := Decode("1")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

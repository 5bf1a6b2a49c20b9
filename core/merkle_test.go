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

func TestMerkleTreeSingleLeaf(t *testing.T) {
	leaf := []byte("only")
	tree := NewMerkleTree([][]byte{leaf})
	require.Equal(t, leaf, tree.Root())
}

func TestMerkleTreeOddNodePromotedUnmerged(t *testing.T) {
	a, b, c := []byte("a"), []byte("b"), []byte("c")
	tree := NewMerkleTree([][]byte{a, b, c})

	abNode := NewMerkleNode(NewMerkleNode(nil, nil, a), NewMerkleNode(nil, nil, b), nil)
	want := sha256Sum(append(append([]byte{}, abNode.Data...), c...))
	require.Equal(t, want, tree.Root())
}

func TestMerkleTreeDeterministic(t *testing.T) {
	data := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	t1 := NewMerkleTree(data)
	t2 := NewMerkleTree(data)
	require.Equal(t, t1.Root(), t2.Root())
}

func TestMerkleTreeSensitiveToOrder(t *testing.T) {
	t1 := NewMerkleTree([][]byte{[]byte("a"), []byte("b")})
	t2 := NewMerkleTree([][]byte{[]byte("b"), []byte("a")})
	require.NotEqual(t, t1.Root(), t2.Root())
}

func TestMerkleTreeEmpty(t *testing.T) {
	tree := NewMerkleTree(nil)
	require.Nil(t, tree.Root())
}

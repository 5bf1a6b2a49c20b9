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

import "log"

// MerkleNode is a node of a Merkle tree. Data is either a leaf's raw bytes
// or the hash of its two children merged together.
type MerkleNode struct {
	Left  *MerkleNode
	Right *MerkleNode
	Data  []byte
}

// NewMerkleNode builds a leaf node carrying data as-is (left and right both
// nil) or an internal node merging left and right (data must be nil).
func NewMerkleNode(left, right *MerkleNode, data []byte) *MerkleNode {
	node := MerkleNode{}
	switch {
	case left != nil && right != nil:
		merged := append(append([]byte{}, left.Data...), right.Data...)
		node.Data = sha256Sum(merged)
	case left == nil && right == nil:
		node.Data = data
	default:
		log.Panic("merkle: left and right nodes must be at the same level")
	}
	node.Left, node.Right = left, right
	return &node
}

// MerkleTree is a complete binary tree built over leaf data.
type MerkleTree struct {
	RootNode *MerkleNode
}

// NewMerkleTree builds a Merkle tree over data. With one leaf the root
// equals that leaf, unhashed. With an odd number of nodes at any level, the
// unpaired trailing node is promoted to the next level as-is rather than
// being paired with a duplicate of itself.
func NewMerkleTree(data [][]byte) *MerkleTree {
	if len(data) == 0 {
		return &MerkleTree{}
	}

	var nodes []MerkleNode
	for _, d := range data {
		nodes = append(nodes, *NewMerkleNode(nil, nil, d))
	}

	for len(nodes) > 1 {
		var level []MerkleNode
		for i := 0; i+1 < len(nodes); i += 2 {
			level = append(level, *NewMerkleNode(&nodes[i], &nodes[i+1], nil))
		}
		if len(nodes)%2 != 0 {
			level = append(level, nodes[len(nodes)-1])
		}
		nodes = level
	}

	return &MerkleTree{RootNode: &nodes[0]}
}

// Root returns the Merkle root hash, or nil if the tree has no leaves.
func (t *MerkleTree) Root() []byte {
	if t.RootNode == nil {
		return nil
	}
	return t.RootNode.Data
}

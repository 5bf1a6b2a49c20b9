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

/* This file defines the wire payloads exchanged between nodes: version,
addr, inv, getblocks, getdata, block and tx. A request on the wire is
always a 12-byte command followed by the gob-encoded payload below. */
package network

// versionMsg lets a peer advertise its chain height so the two sides can
// agree on who is behind.
type versionMsg struct {
	Version  int
	Height   int
	AddrFrom string
}

// addrMsg shares a peer's known-node list with another peer.
type addrMsg struct {
	AddrList []string
}

// invMsg advertises a batch of block or transaction hashes the sender has
// available, without sending their bodies.
type invMsg struct {
	AddrFrom string
	Kind     string // "block" or "tx"
	Items    [][]byte
}

// getBlocksMsg requests the full set of block hashes the peer holds.
type getBlocksMsg struct {
	AddrFrom string
}

// getDataMsg requests the body of a single block or transaction by id.
type getDataMsg struct {
	AddrFrom string
	Kind     string // "block" or "tx"
	Id       []byte
}

// blockMsg carries a gob-serialized block.
type blockMsg struct {
	AddrFrom string
	Block    []byte
}

// txMsg carries a gob-serialized transaction.
type txMsg struct {
	AddrFrom    string
	Transaction []byte
}

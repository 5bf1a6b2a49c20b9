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

package network

import (
	"bytes"
	"encoding/gob"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"emberchain/core"
)

// encodeMsg gob-encodes payload the same way sendCmd does, for tests that
// exercise a handle* function directly without a real TCP round trip.
func encodeMsg(t *testing.T, payload interface{}) []byte {
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(payload))
	return buf.Bytes()
}

func TestCmdBytesRoundTrip(t *testing.T) {
	for _, cmd := range []string{"version", "addr", "inv", "getblocks", "getdata", "block", "tx"} {
		encoded := cmd2Bytes(cmd)
		require.Len(t, encoded, cmdLen)
		require.Equal(t, cmd, bytes2Cmd(encoded))
	}
}

func TestCmdBytesPadsWithZeros(t *testing.T) {
	encoded := cmd2Bytes("tx")
	for i := 2; i < cmdLen; i++ {
		require.Equal(t, byte(0), encoded[i])
	}
}

func newTestServer(t *testing.T, nodeId, port, minerAddr string) *Server {
	t.Cleanup(func() { os.RemoveAll("data/" + nodeId) })

	wallet := core.NewWallet()
	chain, err := core.CreateBlockChain(wallet.Address(), nodeId)
	require.NoError(t, err)
	t.Cleanup(func() { chain.Db.Close() })

	set := &core.UTXOSet{BlockChain: chain}
	require.NoError(t, set.Reindex())

	return NewServer(port, minerAddr, set)
}

func TestHandleVersionKnownsSenderAndMayGossip(t *testing.T) {
	srv := newTestServer(t, strings.ReplaceAll(t.Name(), "/", "_"), "4000", "")

	msg := versionMsg{Version: version, Height: 0, AddrFrom: "localhost:4001"}

	require.False(t, srv.isKnownNode("localhost:4001"))
	require.NoError(t, srv.handleVersion(encodeMsg(t, msg)))
	require.True(t, srv.isKnownNode("localhost:4001"))
}

func TestHandleAddrAddsAllNodes(t *testing.T) {
	srv := newTestServer(t, strings.ReplaceAll(t.Name(), "/", "_"), "4002", "")

	msg := addrMsg{AddrList: []string{"localhost:4010", "localhost:4011"}}

	require.NoError(t, srv.handleAddr(encodeMsg(t, msg)))
	require.True(t, srv.isKnownNode("localhost:4010"))
	require.True(t, srv.isKnownNode("localhost:4011"))
}

func TestMempoolAccounting(t *testing.T) {
	srv := newTestServer(t, strings.ReplaceAll(t.Name(), "/", "_"), "4020", "")

	wallet := core.NewWallet()
	tx, err := core.NewCoinbaseTx(wallet.Address(), "")
	require.NoError(t, err)

	require.Equal(t, 0, srv.mempoolLen())
	srv.mempoolPut(*tx)
	require.Equal(t, 1, srv.mempoolLen())

	got, ok := srv.mempoolGet(tx.Id)
	require.True(t, ok)
	require.Equal(t, tx.Id, got.Id)
}

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

/*
This file implements the gossip protocol nodes speak to exchange blocks and
transactions. We have:

  - a seed node (hardcoded as "localhost:3000"): the default node a newly
    started node connects to in order to learn the network's current
    height and sync up. The seed node creates the chain and relays
    transactions but does not mine.

  - miner nodes: nodes started with MINER_ADDRESS set. They collect incoming
    transactions in a mempool and, once it is non-empty, verify, pack and
    mine them into a block.

  - plain nodes: used to create wallets and submit transactions. Every
    node, miner or not, keeps a full copy of the chain.

All mutable server state lives behind a single mutex (serverState), the
same shape the reference implementation uses for its Arc<Mutex<...>>
inner state: one lock, no partial/global var races.
*/
package network

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"emberchain/core"
)

const (
	protocol         = "tcp"
	version          = 1
	cmdLen           = 12
	SeedNode         = "localhost:3000"
	mempoolThreshold = 1
)

// serverState is every piece of mutable state a Server touches, guarded by
// a single mutex.
type serverState struct {
	knownNodes      map[string]struct{}
	utxo            *core.UTXOSet
	blocksInTransit [][]byte
	mempool         map[string]core.Transaction
}

// Server is a gossiping chain node: its own address, an optional mining
// address, and its mutex-protected state.
type Server struct {
	nodeAddr  string
	minerAddr string
	mu        sync.Mutex
	state     *serverState
}

// NewServer returns a Server bound to localhost:port, optionally mining to
// minerAddr, backed by utxo.
func NewServer(port, minerAddr string, utxo *core.UTXOSet) *Server {
	known := map[string]struct{}{SeedNode: {}}
	return &Server{
		nodeAddr: fmt.Sprintf("localhost:%s", port),
		minerAddr: minerAddr,
		state: &serverState{
			knownNodes: known,
			utxo:       utxo,
			mempool:    make(map[string]core.Transaction),
		},
	}
}

// Start listens on the server's address, syncing with the seed node first
// (unless it is the seed node itself), then serves connections forever.
func (srv *Server) Start() error {
	listener, err := net.Listen(protocol, srv.nodeAddr)
	if err != nil {
		return err
	}
	defer listener.Close()

	if srv.nodeAddr != SeedNode {
		if err := srv.sendVersion(SeedNode); err != nil {
			log.Printf("network: could not reach seed node: %v", err)
		}
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go srv.handleConn(conn)
	}
}

// SendTransaction submits tx to dstAddr from a throwaway client identity.
func SendTransaction(dstAddr string, tx *core.Transaction) error {
	client := &Server{nodeAddr: "localhost:7000", state: &serverState{knownNodes: map[string]struct{}{}}}
	return client.sendTx(dstAddr, tx)
}

/* ---------------------------- locked accessors --------------------------- */

func (srv *Server) addKnownNode(addr string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.state.knownNodes[addr] = struct{}{}
}

func (srv *Server) removeKnownNode(addr string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.state.knownNodes, addr)
}

func (srv *Server) isKnownNode(addr string) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	_, ok := srv.state.knownNodes[addr]
	return ok
}

func (srv *Server) knownNodeList() []string {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	nodes := make([]string, 0, len(srv.state.knownNodes))
	for n := range srv.state.knownNodes {
		nodes = append(nodes, n)
	}
	return nodes
}

func (srv *Server) setBlocksInTransit(hashes [][]byte) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.state.blocksInTransit = hashes
}

func (srv *Server) popBlockInTransit() ([]byte, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.state.blocksInTransit) == 0 {
		return nil, false
	}
	next := srv.state.blocksInTransit[0]
	srv.state.blocksInTransit = srv.state.blocksInTransit[1:]
	return next, true
}

func (srv *Server) mempoolPut(tx core.Transaction) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.state.mempool[hex.EncodeToString(tx.Id)] = tx
}

func (srv *Server) mempoolGet(txId []byte) (core.Transaction, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	tx, ok := srv.state.mempool[hex.EncodeToString(txId)]
	return tx, ok
}

func (srv *Server) mempoolSnapshot() map[string]core.Transaction {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	snap := make(map[string]core.Transaction, len(srv.state.mempool))
	for k, v := range srv.state.mempool {
		snap[k] = v
	}
	return snap
}

func (srv *Server) mempoolDelete(txId string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.state.mempool, txId)
}

func (srv *Server) mempoolLen() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.state.mempool)
}

/* ------------------------------ dispatch ------------------------------- */

func (srv *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	request, err := io.ReadAll(conn)
	if err != nil {
		log.Printf("network: read: %v", err)
		return
	}
	if len(request) < cmdLen {
		log.Printf("network: request too short")
		return
	}

	cmd := bytes2Cmd(request[:cmdLen])
	body := request[cmdLen:]

	var handleErr error
	switch cmd {
	case "version":
		handleErr = srv.handleVersion(body)
	case "addr":
		handleErr = srv.handleAddr(body)
	case "inv":
		handleErr = srv.handleInv(body)
	case "getblocks":
		handleErr = srv.handleGetBlocks(body)
	case "getdata":
		handleErr = srv.handleGetData(body)
	case "block":
		handleErr = srv.handleBlock(body)
	case "tx":
		handleErr = srv.handleTx(body)
	default:
		handleErr = core.ErrUnknownCommand
	}
	if handleErr != nil {
		log.Printf("network: handling %q from %s: %v", cmd, conn.RemoteAddr(), handleErr)
	}
}

func (srv *Server) handleVersion(body []byte) error {
	var msg versionMsg
	if err := gobDecodeInto(body, &msg); err != nil {
		return err
	}

	myHeight, err := srv.state.utxo.BlockChain.GetBestHeight()
	if err != nil {
		return err
	}
	if myHeight < msg.Height {
		if err := srv.sendGetBlocks(msg.AddrFrom); err != nil {
			return err
		}
	} else if myHeight > msg.Height {
		if err := srv.sendVersion(msg.AddrFrom); err != nil {
			return err
		}
	}

	if !srv.isKnownNode(msg.AddrFrom) {
		srv.addKnownNode(msg.AddrFrom)
	}
	return nil
}

func (srv *Server) handleAddr(body []byte) error {
	var msg addrMsg
	if err := gobDecodeInto(body, &msg); err != nil {
		return err
	}
	for _, addr := range msg.AddrList {
		srv.addKnownNode(addr)
	}
	return nil
}

func (srv *Server) handleInv(body []byte) error {
	var msg invMsg
	if err := gobDecodeInto(body, &msg); err != nil {
		return err
	}
	if len(msg.Items) == 0 {
		return nil
	}

	switch msg.Kind {
	case "block":
		srv.setBlocksInTransit(msg.Items)
		blockHash := msg.Items[0]
		if err := srv.sendGetData(msg.AddrFrom, "block", blockHash); err != nil {
			return err
		}
		srv.popBlockInTransit()
	case "tx":
		txId := msg.Items[0]
		if _, ok := srv.mempoolGet(txId); !ok {
			return srv.sendGetData(msg.AddrFrom, "tx", txId)
		}
	}
	return nil
}

func (srv *Server) handleGetBlocks(body []byte) error {
	var msg getBlocksMsg
	if err := gobDecodeInto(body, &msg); err != nil {
		return err
	}
	hashes := srv.state.utxo.BlockChain.GetBlockHashes()
	return srv.sendInv(msg.AddrFrom, "block", hashes)
}

func (srv *Server) handleGetData(body []byte) error {
	var msg getDataMsg
	if err := gobDecodeInto(body, &msg); err != nil {
		return err
	}

	switch msg.Kind {
	case "block":
		block, err := srv.state.utxo.BlockChain.GetBlock(msg.Id)
		if err != nil {
			return err
		}
		return srv.sendBlock(msg.AddrFrom, block)
	case "tx":
		tx, ok := srv.mempoolGet(msg.Id)
		if !ok {
			return core.ErrTransactionNotFound
		}
		return srv.sendTx(msg.AddrFrom, &tx)
	}
	return nil
}

func (srv *Server) handleBlock(body []byte) error {
	var msg blockMsg
	if err := gobDecodeInto(body, &msg); err != nil {
		return err
	}

	block := core.DeserializeBlock(msg.Block)
	if err := srv.state.utxo.BlockChain.AddBlock(block); err != nil {
		return err
	}

	if next, ok := srv.popBlockInTransit(); ok {
		return srv.sendGetData(msg.AddrFrom, "block", next)
	}
	return srv.state.utxo.Reindex()
}

// handleTx stores the received transaction in the mempool. The seed node
// only relays it onward; a miner node with mempoolThreshold or more
// pending transactions verifies, packs and mines them, looping until the
// mempool drains.
func (srv *Server) handleTx(body []byte) error {
	var msg txMsg
	if err := gobDecodeInto(body, &msg); err != nil {
		return err
	}
	tx := core.DeserializeTx(msg.Transaction)
	srv.mempoolPut(*tx)

	if srv.nodeAddr == SeedNode {
		for _, node := range srv.knownNodeList() {
			if node != srv.nodeAddr && node != msg.AddrFrom {
				if err := srv.sendInv(node, "tx", [][]byte{tx.Id}); err != nil {
					log.Printf("network: relay to %s: %v", node, err)
				}
			}
		}
		return nil
	}

	if srv.minerAddr == "" {
		return nil
	}

	for srv.mempoolLen() >= mempoolThreshold {
		if err := srv.mineMempool(); err != nil {
			return err
		}
	}
	return nil
}

// mineMempool verifies every mempool transaction, mines the verified ones
// plus a coinbase into a new block, reindexes the UTXO set and gossips the
// new block's hash to every known node.
func (srv *Server) mineMempool() error {
	snapshot := srv.mempoolSnapshot()

	var verified []*core.Transaction
	for txId, tx := range snapshot {
		tx := tx
		ok, err := srv.state.utxo.BlockChain.VerifyTx(&tx)
		if err != nil {
			return err
		}
		if ok {
			verified = append(verified, &tx)
		} else {
			srv.mempoolDelete(txId)
		}
	}
	if len(verified) == 0 {
		return nil
	}

	coinbase, err := core.NewCoinbaseTx(srv.minerAddr, "")
	if err != nil {
		return err
	}
	verified = append([]*core.Transaction{coinbase}, verified...)

	block, err := srv.state.utxo.BlockChain.MineBlock(verified)
	if err != nil {
		return err
	}
	if err := srv.state.utxo.Reindex(); err != nil {
		return err
	}

	for _, tx := range verified {
		srv.mempoolDelete(hex.EncodeToString(tx.Id))
	}

	for _, node := range srv.knownNodeList() {
		if node != srv.nodeAddr {
			if err := srv.sendInv(node, "block", [][]byte{[]byte(block.Hash)}); err != nil {
				log.Printf("network: announce block to %s: %v", node, err)
			}
		}
	}
	return nil
}

/* ------------------------------ client side ------------------------------ */

func (srv *Server) sendBlock(dstAddr string, block *core.Block) error {
	msg := blockMsg{AddrFrom: srv.nodeAddr, Block: block.Serialize()}
	return srv.sendCmd(dstAddr, "block", msg)
}

func (srv *Server) sendInv(dstAddr, kind string, items [][]byte) error {
	msg := invMsg{AddrFrom: srv.nodeAddr, Kind: kind, Items: items}
	return srv.sendCmd(dstAddr, "inv", msg)
}

func (srv *Server) sendTx(dstAddr string, tx *core.Transaction) error {
	msg := txMsg{AddrFrom: srv.nodeAddr, Transaction: tx.Serialize()}
	return srv.sendCmd(dstAddr, "tx", msg)
}

func (srv *Server) sendVersion(dstAddr string) error {
	height := 0
	if srv.state.utxo != nil {
		h, err := srv.state.utxo.BlockChain.GetBestHeight()
		if err != nil {
			return err
		}
		height = h
	}
	msg := versionMsg{Version: version, Height: height, AddrFrom: srv.nodeAddr}
	return srv.sendCmd(dstAddr, "version", msg)
}

func (srv *Server) sendGetBlocks(dstAddr string) error {
	msg := getBlocksMsg{AddrFrom: srv.nodeAddr}
	return srv.sendCmd(dstAddr, "getblocks", msg)
}

func (srv *Server) sendGetData(dstAddr, kind string, id []byte) error {
	msg := getDataMsg{AddrFrom: srv.nodeAddr, Kind: kind, Id: id}
	return srv.sendCmd(dstAddr, "getdata", msg)
}

// sendCmd gob-encodes payload, prefixes it with cmd's 12-byte wire form and
// sends it to dstAddr. An unreachable peer is dropped from knownNodes.
func (srv *Server) sendCmd(dstAddr, cmd string, payload interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}
	request := append(cmd2Bytes(cmd), buf.Bytes()...)
	return srv.send(dstAddr, request)
}

func (srv *Server) send(dstAddr string, data []byte) error {
	conn, err := net.Dial(protocol, dstAddr)
	if err != nil {
		srv.removeKnownNode(dstAddr)
		return nil
	}
	defer conn.Close()

	_, err = io.Copy(conn, bytes.NewReader(data))
	return err
}

/* -------------------------------- helpers -------------------------------- */

func gobDecodeInto(data []byte, e interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

func cmd2Bytes(cmd string) []byte {
	var out [cmdLen]byte
	copy(out[:], cmd)
	return out[:]
}

func bytes2Cmd(raw []byte) string {
	var cmd []byte
	for _, b := range raw {
		if b != 0x0 {
			cmd = append(cmd, b)
		}
	}
	return string(cmd)
}

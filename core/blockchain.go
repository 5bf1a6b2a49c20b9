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

/* The blocks are stored in a per-node boltdb file, keyed by hash, with
the literal key "LAST" always pointing to the tip block's hash. */
package core

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

const blocksBucket = "blocks"
const tipKey = "LAST"

// dbFile returns the per-node blockchain db path.
func dbFile(nodeId string) string {
	return fmt.Sprintf("data/%s/blocks.db", nodeId)
}

// BlockChain is a hash-linked list of blocks. It only keeps the tip hash
// in memory; every block's body lives in Db.
type BlockChain struct {
	Tip string
	Db  *bolt.DB
}

// CreateBlockChain creates the chain for nodeId, mining the genesis block
// with its coinbase reward paid to addr. Returns ErrAlreadyExists if a
// chain already exists for nodeId.
func CreateBlockChain(addr, nodeId string) (*BlockChain, error) {
	path := dbFile(nodeId)
	if fileExists(path) {
		return nil, ErrAlreadyExists
	}

	db, err := openBucketDB(path, []byte(blocksBucket))
	if err != nil {
		return nil, err
	}

	coinbaseTx, err := NewCoinbaseTx(addr, fmt.Sprintf("genesis block created at %s", time.Now().UTC()))
	if err != nil {
		db.Close()
		return nil, err
	}
	genesis := NewGenesisBlock(coinbaseTx)

	err = db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		if err := bucket.Put([]byte(genesis.Hash), genesis.Serialize()); err != nil {
			return err
		}
		return bucket.Put([]byte(tipKey), []byte(genesis.Hash))
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BlockChain{Tip: genesis.Hash, Db: db}, nil
}

// NewBlockChain opens the existing chain for nodeId. Returns ErrNoChain if
// none has been created yet.
func NewBlockChain(nodeId string) (*BlockChain, error) {
	path := dbFile(nodeId)
	if !fileExists(path) {
		return nil, ErrNoChain
	}

	db, err := openBucketDB(path, []byte(blocksBucket))
	if err != nil {
		return nil, err
	}

	var tip []byte
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		tip = bucket.Get([]byte(tipKey))
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	if tip == nil {
		db.Close()
		return nil, ErrNoChain
	}

	return &BlockChain{Tip: string(tip), Db: db}, nil
}

// MineBlock verifies every tx in txs, mines a new block extending the
// current tip and appends it, advancing the tip.
func (chain *BlockChain) MineBlock(txs []*Transaction) (*Block, error) {
	for _, tx := range txs {
		ok, err := chain.VerifyTx(tx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidTransaction
		}
	}

	var lastHash string
	var lastHeight int
	err := chain.Db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		lastHash = string(bucket.Get([]byte(tipKey)))
		lastBlock := DeserializeBlock(bucket.Get([]byte(lastHash)))
		lastHeight = lastBlock.Height
		return nil
	})
	if err != nil {
		return nil, err
	}

	newBlock := NewBlock(txs, lastHash, lastHeight+1)
	if err := chain.appendBlock(newBlock); err != nil {
		return nil, err
	}
	return newBlock, nil
}

// AddBlock inserts block (received from a peer) into the chain, advancing
// the tip only when block's height strictly exceeds the current tip's
// height. A block already present is a no-op. Equal-height blocks keep
// whichever was accepted first.
func (chain *BlockChain) AddBlock(block *Block) error {
	exists := false
	err := chain.Db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		exists = bucket.Get([]byte(block.Hash)) != nil
		return nil
	})
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return chain.appendBlock(block)
}

// appendBlock stores block unconditionally and advances the tip when
// block's height is greater than the current tip's.
func (chain *BlockChain) appendBlock(block *Block) error {
	return chain.Db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		if err := bucket.Put([]byte(block.Hash), block.Serialize()); err != nil {
			return err
		}

		tipRaw := bucket.Get([]byte(tipKey))
		advance := tipRaw == nil
		if !advance {
			tipBlock := DeserializeBlock(bucket.Get(tipRaw))
			advance = block.Height > tipBlock.Height
		}
		if advance {
			if err := bucket.Put([]byte(tipKey), []byte(block.Hash)); err != nil {
				return err
			}
			chain.Tip = block.Hash
		}
		return nil
	})
}

// FindTx returns the transaction identified by txId.
func (chain *BlockChain) FindTx(txId []byte) (Transaction, error) {
	iter := chain.Iterator()
	for {
		block := iter.Next()
		for _, tx := range block.Transactions {
			if bytes.Equal(tx.Id, txId) {
				return *tx, nil
			}
		}
		if block.PrevBlockHash == "" {
			break
		}
	}
	return Transaction{}, ErrTransactionNotFound
}

// FindUTXO scans the whole chain and returns every unspent output, keyed
// by the hex-encoded id of the transaction that created it. Callers doing
// repeated lookups should use UTXOSet instead; this is the from-scratch
// reference computation UTXOSet.Reindex is checked against.
func (chain *BlockChain) FindUTXO() map[string]TXOutputs {
	utxo := make(map[string]TXOutputs)
	spent := make(map[string][]int32)
	iter := chain.Iterator()

	for {
		block := iter.Next()
		for _, tx := range block.Transactions {
			txId := hex.EncodeToString(tx.Id)

		Outputs:
			for outIdx, out := range tx.Vout {
				for _, spentIdx := range spent[txId] {
					if int32(outIdx) == spentIdx {
						continue Outputs
					}
				}
				outs := utxo[txId]
				outs.Outputs = append(outs.Outputs, out)
				utxo[txId] = outs
			}

			if !tx.IsCoinbaseTx() {
				for _, in := range tx.Vin {
					inTxId := hex.EncodeToString(in.TxId)
					spent[inTxId] = append(spent[inTxId], in.VoutIdx)
				}
			}
		}
		if block.PrevBlockHash == "" {
			break
		}
	}

	return utxo
}

// SignTx signs tx's inputs with private, resolving the previous
// transactions it references from the chain.
func (chain *BlockChain) SignTx(tx *Transaction, private ed25519.PrivateKey) error {
	prevTxs, err := chain.getPrevTxs(tx)
	if err != nil {
		return err
	}
	return tx.Sign(private, prevTxs)
}

// VerifyTx verifies tx's input signatures against the chain.
func (chain *BlockChain) VerifyTx(tx *Transaction) (bool, error) {
	if tx.IsCoinbaseTx() {
		return true, nil
	}
	prevTxs, err := chain.getPrevTxs(tx)
	if err != nil {
		return false, err
	}
	return tx.Verify(prevTxs)
}

// getPrevTxs resolves every transaction referenced by tx's inputs. A
// reference the chain has no record of surfaces as ErrMissingPrevTx.
func (chain *BlockChain) getPrevTxs(tx *Transaction) (map[string]Transaction, error) {
	prevTxs := make(map[string]Transaction)
	for _, in := range tx.Vin {
		prevTx, err := chain.FindTx(in.TxId)
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, ErrMissingPrevTx
		}
		if err != nil {
			return nil, err
		}
		prevTxs[hex.EncodeToString(prevTx.Id)] = prevTx
	}
	return prevTxs, nil
}

// IterOnChain walks the chain from the tip back to the genesis block.
type IterOnChain struct {
	curBlockHash string
	db           *bolt.DB
}

// Iterator returns an iterator positioned at chain's tip.
func (chain *BlockChain) Iterator() *IterOnChain {
	return &IterOnChain{curBlockHash: chain.Tip, db: chain.Db}
}

// Next returns the current block and advances the iterator towards the
// genesis block.
func (iter *IterOnChain) Next() *Block {
	var block *Block
	err := iter.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		block = DeserializeBlock(bucket.Get([]byte(iter.curBlockHash)))
		return nil
	})
	if err != nil {
		return nil
	}
	iter.curBlockHash = block.PrevBlockHash
	return block
}

// GetBestHeight returns the height of the chain's tip block.
func (chain *BlockChain) GetBestHeight() (int, error) {
	var height int
	err := chain.Db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		tip := bucket.Get([]byte(tipKey))
		height = DeserializeBlock(bucket.Get(tip)).Height
		return nil
	})
	return height, err
}

// GetBlockHashes returns every block hash in the chain, tip first.
func (chain *BlockChain) GetBlockHashes() [][]byte {
	var hashes [][]byte
	iter := chain.Iterator()
	for {
		block := iter.Next()
		hashes = append(hashes, []byte(block.Hash))
		if block.PrevBlockHash == "" {
			break
		}
	}
	return hashes
}

// GetBlock returns the block with the given hash.
func (chain *BlockChain) GetBlock(hash []byte) (*Block, error) {
	var block *Block
	err := chain.Db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		raw := bucket.Get(hash)
		if raw == nil {
			return ErrBlockNotFound
		}
		block = DeserializeBlock(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

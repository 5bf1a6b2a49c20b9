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
	"encoding/hex"

	"github.com/boltdb/bolt"
)

// utxoBucket holds the UTXO cache: key is a transaction's raw Id, value is
// its gob-encoded TXOutputs. This cache is derived state: it can always be
// recomputed from the chain via Reindex.
const utxoBucket = "chainstate"

// UTXOSet is a boltdb-backed cache of unspent outputs, maintained
// incrementally by Update as blocks are mined/received, and recomputable
// from scratch via Reindex.
type UTXOSet struct {
	BlockChain *BlockChain
}

// serializeOutputs returns the gob-encoded bytes of outs.
func serializeOutputs(outs TXOutputs) []byte {
	return gobEncode(outs)
}

// deserializeOutputs decodes a TXOutputs from its gob-encoded bytes.
func deserializeOutputs(data []byte) TXOutputs {
	var outs TXOutputs
	gobDecode(data, &outs)
	return outs
}

// ensureBucket makes sure the chainstate bucket exists, for callers that
// read before any Reindex has run.
func (set UTXOSet) ensureBucket() error {
	return set.BlockChain.Db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(utxoBucket))
		return err
	})
}

// FindSpendableOutputs returns the accumulated value and per-transaction
// output indices of pubKeyHash's unspent outputs, stopping once amount is
// reached.
func (set UTXOSet) FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int32, error) {
	if err := set.ensureBucket(); err != nil {
		return 0, nil, err
	}

	unspent := make(map[string][]int32)
	var accumulated int32

	err := set.BlockChain.Db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(utxoBucket))
		cursor := bucket.Cursor()

		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			txId := hex.EncodeToString(key)
			outs := deserializeOutputs(value)

			for outIdx, out := range outs.Outputs {
				if out.IsLockedWithKey(pubKeyHash) && accumulated < amount {
					accumulated += out.Value
					unspent[txId] = append(unspent[txId], int32(outIdx))
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return accumulated, unspent, nil
}

// FindUTXO returns every unspent output locked to pubKeyHash.
func (set UTXOSet) FindUTXO(pubKeyHash []byte) ([]TXOutput, error) {
	if err := set.ensureBucket(); err != nil {
		return nil, err
	}

	var utxo []TXOutput
	err := set.BlockChain.Db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(utxoBucket))
		cursor := bucket.Cursor()

		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			outs := deserializeOutputs(value)
			for _, out := range outs.Outputs {
				if out.IsLockedWithKey(pubKeyHash) {
					utxo = append(utxo, out)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return utxo, nil
}

// CountTransactions returns the number of distinct transactions holding at
// least one unspent output.
func (set UTXOSet) CountTransactions() (int, error) {
	if err := set.ensureBucket(); err != nil {
		return 0, err
	}

	counter := 0
	err := set.BlockChain.Db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(utxoBucket))
		cursor := bucket.Cursor()
		for key, _ := cursor.First(); key != nil; key, _ = cursor.Next() {
			counter++
		}
		return nil
	})
	return counter, err
}

// Reindex recomputes the UTXO set from scratch by scanning the whole
// chain, replacing whatever was cached before.
func (set UTXOSet) Reindex() error {
	db := set.BlockChain.Db

	err := db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(utxoBucket))
		if err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err = tx.CreateBucket([]byte(utxoBucket))
		return err
	})
	if err != nil {
		return err
	}

	newUtxo := set.BlockChain.FindUTXO()
	return db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(utxoBucket))
		for txId, outs := range newUtxo {
			key, err := hex.DecodeString(txId)
			if err != nil {
				return err
			}
			if err := bucket.Put(key, serializeOutputs(outs)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update folds a newly accepted block into the UTXO cache: every input it
// spends removes (or shrinks) the corresponding cached output set, and
// every output it creates is added fresh.
func (set UTXOSet) Update(block *Block) error {
	if err := set.ensureBucket(); err != nil {
		return err
	}

	return set.BlockChain.Db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(utxoBucket))

		for _, transaction := range block.Transactions {
			if !transaction.IsCoinbaseTx() {
				for _, in := range transaction.Vin {
					raw := bucket.Get(in.TxId)
					if raw == nil {
						continue
					}
					outs := deserializeOutputs(raw)

					var remaining TXOutputs
					for outIdx, out := range outs.Outputs {
						if int32(outIdx) != in.VoutIdx {
							remaining.Outputs = append(remaining.Outputs, out)
						}
					}

					if len(remaining.Outputs) == 0 {
						if err := bucket.Delete(in.TxId); err != nil {
							return err
						}
					} else if err := bucket.Put(in.TxId, serializeOutputs(remaining)); err != nil {
						return err
					}
				}
			}

			var newOutputs TXOutputs
			newOutputs.Outputs = append(newOutputs.Outputs, transaction.Vout...)
			if err := bucket.Put(transaction.Id, serializeOutputs(newOutputs)); err != nil {
				return err
			}
		}

		return nil
	})
}

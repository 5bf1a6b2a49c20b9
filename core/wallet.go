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

/* This file defines Wallet and Wallets, with a boltdb-backed address ->
Wallet mapping persisted under the "wallets" bucket. */
package core

import (
	"crypto/ed25519"

	"emberchain/address"

	"github.com/boltdb/bolt"
)

const walletsBucket = "wallets"

// Wallet is an ed25519 keypair. Immutable once created.
type Wallet struct {
	PrivateKey ed25519.PrivateKey
	PubKey     ed25519.PublicKey
}

// NewWallet creates a new Wallet.
func NewWallet() *Wallet {
	private, public := NewKeyPair()
	return &Wallet{PrivateKey: private, PubKey: public}
}

// Address returns the wallet's base58 address: base58(version ||
// RIPEMD160(SHA256(pubkey)) || checksum).
func (wallet *Wallet) Address() string {
	return address.Encode(HashPubKey(wallet.PubKey))
}

// Wallets is the address -> Wallet store, backed by a bolt DB at path.
type Wallets struct {
	dbPath string
}

// OpenWallets opens (creating if absent) the wallet store at path.
func OpenWallets(path string) (*Wallets, error) {
	db, err := openBucketDB(path, []byte(walletsBucket))
	if err != nil {
		return nil, err
	}
	if err := db.Close(); err != nil {
		return nil, err
	}
	return &Wallets{dbPath: path}, nil
}

// CreateWallet generates a new Wallet, persists it under its address and
// returns that address.
func (w *Wallets) CreateWallet() (string, error) {
	wallet := NewWallet()
	addr := wallet.Address()

	db, err := openBucketDB(w.dbPath, []byte(walletsBucket))
	if err != nil {
		return "", err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(walletsBucket))
		return bucket.Put([]byte(addr), gobEncode(wallet))
	})
	if err != nil {
		return "", err
	}
	return addr, nil
}

// GetWallet returns the Wallet stored under addr.
func (w *Wallets) GetWallet(addr string) (Wallet, error) {
	db, err := openBucketDB(w.dbPath, []byte(walletsBucket))
	if err != nil {
		return Wallet{}, err
	}
	defer db.Close()

	var wallet Wallet
	found := false
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(walletsBucket))
		raw := bucket.Get([]byte(addr))
		if raw == nil {
			return nil
		}
		found = true
		gobDecode(raw, &wallet)
		return nil
	})
	if err != nil {
		return Wallet{}, err
	}
	if !found {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet, nil
}

// GetAddrs returns every address known to the wallet store.
func (w *Wallets) GetAddrs() ([]string, error) {
	db, err := openBucketDB(w.dbPath, []byte(walletsBucket))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var addrs []string
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(walletsBucket))
		return bucket.ForEach(func(k, _ []byte) error {
			addrs = append(addrs, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// ValidateAddr reports whether addr is a well-formed, correctly
// checksummed address.
func ValidateAddr(addr string) bool {
	return address.Validate(addr)
}

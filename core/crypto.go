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

/* This file defines the cryptographic primitives the rest of core builds on:
sha256, ripemd160, ed25519 sign/verify, and the pubkey-hash helper shared by
wallets, transaction outputs and addresses. */
package core

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"log"

	"golang.org/x/crypto/ripemd160"
)

// sha256Sum returns the SHA-256 digest of data.
func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// ripemd160Sum returns the RIPEMD-160 digest of data.
func ripemd160Sum(data []byte) []byte {
	hasher := ripemd160.New()
	_, err := hasher.Write(data)
	if err != nil {
		log.Panic(err)
	}
	return hasher.Sum(nil)
}

// HashPubKey hashes a public key with SHA-256 followed by RIPEMD-160,
// returning a 20-byte pubkey hash.
func HashPubKey(pubKey []byte) []byte {
	return ripemd160Sum(sha256Sum(pubKey))
}

// NewKeyPair generates a fresh ed25519 private/public key pair.
func NewKeyPair() (ed25519.PrivateKey, ed25519.PublicKey) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Panic(err)
	}
	return private, public
}

// Sign signs msg with the ed25519 private key.
func Sign(msg []byte, private ed25519.PrivateKey) []byte {
	return ed25519.Sign(private, msg)
}

// VerifySignature checks sig against msg under the ed25519 public key.
func VerifySignature(msg, public, sig []byte) bool {
	if len(public) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(public, msg, sig)
}

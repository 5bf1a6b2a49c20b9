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

import "errors"

// Consensus and domain errors surfaced by the chain/UTXO/transaction path.
// Network-layer failures (TCP connect errors) are not part of this set:
// they silently evict the offending peer instead of propagating.
var (
	ErrAlreadyExists       = errors.New("blockchain already exists")
	ErrNoChain             = errors.New("no blockchain found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrBlockNotFound       = errors.New("block not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMissingPrevTx       = errors.New("previous transaction missing")
	ErrCorruptPrevTx       = errors.New("previous transaction malformed")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrUnknownCommand      = errors.New("unknown command")
)

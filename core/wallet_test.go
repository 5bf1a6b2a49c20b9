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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalletAddressIsValid(t *testing.T) {
	wallet := NewWallet()
	require.True(t, ValidateAddr(wallet.Address()))
}

func TestWalletsCreateAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.db")
	wallets, err := OpenWallets(path)
	require.NoError(t, err)

	addr, err := wallets.CreateWallet()
	require.NoError(t, err)
	require.True(t, ValidateAddr(addr))

	wallet, err := wallets.GetWallet(addr)
	require.NoError(t, err)
	require.Equal(t, addr, wallet.Address())

	addrs, err := wallets.GetAddrs()
	require.NoError(t, err)
	require.Contains(t, addrs, addr)
}

func TestWalletsGetUnknownAddrFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.db")
	wallets, err := OpenWallets(path)
	require.NoError(t, err)

	_, err = wallets.GetWallet("1NonexistentAddress")
	require.ErrorIs(t, err, ErrWalletNotFound)
}

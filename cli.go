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

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"emberchain/address"
	"emberchain/core"
	"emberchain/internal/logf"
	"emberchain/network"
)

// CLI is the command line interface for emberchain.
type CLI struct{}

const usage = `Usage:
	createwallet                                    --- Generate a new wallet and save it under the node's wallet store
	listaddresses                                   --- List every address held in the node's wallet store
	reindex                                          --- Rebuild the UTXO set from the chain and print the transaction count
	getbalance ADDR                                  --- Print the balance of ADDR
	printchain                                       --- Print every block in the local chain, newest first
	create ADDR                                      --- Create the chain, paying the genesis coinbase reward to ADDR
	send FROM TO AMOUNT [-m]                         --- Send AMOUNT coins from FROM to TO; -m mines locally instead of relaying
	start PORT                                       --- Start a node on PORT; MINER_ADDRESS enables mining`

func (cli *CLI) printUsage() {
	fmt.Println(usage)
}

func (cli *CLI) validateArgs() {
	if len(os.Args) < 2 {
		cli.printUsage()
		os.Exit(1)
	}
}

func walletsPath(nodeId string) string {
	return fmt.Sprintf("data/%s/wallets.db", nodeId)
}

func (cli *CLI) createWallet(nodeId string) error {
	wallets, err := core.OpenWallets(walletsPath(nodeId))
	if err != nil {
		return err
	}
	addr, err := wallets.CreateWallet()
	if err != nil {
		return err
	}
	fmt.Printf("new address: %s\n", addr)
	return nil
}

func (cli *CLI) listAddresses(nodeId string) error {
	wallets, err := core.OpenWallets(walletsPath(nodeId))
	if err != nil {
		return err
	}
	addrs, err := wallets.GetAddrs()
	if err != nil {
		return err
	}
	for i, addr := range addrs {
		fmt.Printf("#%d: %s\n", i, addr)
	}
	return nil
}

func (cli *CLI) create(addr, nodeId string) error {
	if !core.ValidateAddr(addr) {
		return fmt.Errorf("address %q is not valid", addr)
	}
	chain, err := core.CreateBlockChain(addr, nodeId)
	if err != nil {
		return err
	}
	defer chain.Db.Close()

	set := core.UTXOSet{BlockChain: chain}
	if err := set.Reindex(); err != nil {
		return err
	}
	fmt.Println("done")
	return nil
}

func (cli *CLI) printChain(nodeId string) error {
	chain, err := core.NewBlockChain(nodeId)
	if err != nil {
		return err
	}
	defer chain.Db.Close()

	iter := chain.Iterator()
	for {
		block := iter.Next()
		fmt.Printf("timestamp: %d\n", block.TimeStamp)
		fmt.Printf("height: %d\n", block.Height)
		fmt.Printf("prev hash: %s\n", block.PrevBlockHash)
		fmt.Printf("hash: %s\n", block.Hash)
		fmt.Printf("valid PoW: %s\n\n", strconv.FormatBool(block.Validate()))

		if block.PrevBlockHash == "" {
			break
		}
	}
	return nil
}

func (cli *CLI) reindex(nodeId string) error {
	chain, err := core.NewBlockChain(nodeId)
	if err != nil {
		return err
	}
	defer chain.Db.Close()

	set := core.UTXOSet{BlockChain: chain}
	if err := set.Reindex(); err != nil {
		return err
	}
	count, err := set.CountTransactions()
	if err != nil {
		return err
	}
	fmt.Printf("done, %d transactions in the UTXO set\n", count)
	return nil
}

func (cli *CLI) getBalance(addr, nodeId string) error {
	if !core.ValidateAddr(addr) {
		return fmt.Errorf("address %q is not valid", addr)
	}
	chain, err := core.NewBlockChain(nodeId)
	if err != nil {
		return err
	}
	defer chain.Db.Close()

	set := core.UTXOSet{BlockChain: chain}
	pubKeyHash, err := address.Decode(addr)
	if err != nil {
		return err
	}
	utxo, err := set.FindUTXO(pubKeyHash)
	if err != nil {
		return err
	}

	var balance int32
	for _, out := range utxo {
		balance += out.Value
	}
	fmt.Printf("balance of %q: %d\n", addr, balance)
	return nil
}

func (cli *CLI) send(fromAddr, toAddr string, amount int32, nodeId string, mineNow bool) error {
	if !core.ValidateAddr(fromAddr) {
		return fmt.Errorf("source address %q is not valid", fromAddr)
	}
	if !core.ValidateAddr(toAddr) {
		return fmt.Errorf("destination address %q is not valid", toAddr)
	}

	chain, err := core.NewBlockChain(nodeId)
	if err != nil {
		return err
	}
	defer chain.Db.Close()
	set := core.UTXOSet{BlockChain: chain}

	wallets, err := core.OpenWallets(walletsPath(nodeId))
	if err != nil {
		return err
	}
	senderWallet, err := wallets.GetWallet(fromAddr)
	if err != nil {
		return err
	}

	tx, err := core.NewUTXOTx(&senderWallet, toAddr, amount, set, func(tx *core.Transaction) error {
		return chain.SignTx(tx, senderWallet.PrivateKey)
	})
	if err != nil {
		return err
	}

	if mineNow {
		coinbase, err := core.NewCoinbaseTx(fromAddr, "")
		if err != nil {
			return err
		}
		block, err := chain.MineBlock([]*core.Transaction{coinbase, tx})
		if err != nil {
			return err
		}
		if err := set.Update(block); err != nil {
			return err
		}
	} else if err := network.SendTransaction(network.SeedNode, tx); err != nil {
		return err
	}

	fmt.Println("success")
	return nil
}

func (cli *CLI) start(nodeId, port, minerAddr string) error {
	if minerAddr != "" && !core.ValidateAddr(minerAddr) {
		return fmt.Errorf("miner address %q is not valid", minerAddr)
	}
	chain, err := core.NewBlockChain(nodeId)
	if err != nil {
		return err
	}
	set := core.UTXOSet{BlockChain: chain}

	logf.Infof("starting node %s on port %s (mining: %v)", nodeId, port, minerAddr != "")
	srv := network.NewServer(port, minerAddr, &set)
	return srv.Start()
}

// Run parses os.Args and dispatches to the matching command.
func (cli *CLI) Run() {
	cli.validateArgs()

	nodeId := os.Getenv("NODE_ID")
	if nodeId == "" {
		fmt.Println("NODE_ID is not set")
		os.Exit(1)
	}

	createWalletCmd := flag.NewFlagSet("createwallet", flag.ExitOnError)
	listAddressesCmd := flag.NewFlagSet("listaddresses", flag.ExitOnError)
	reindexCmd := flag.NewFlagSet("reindex", flag.ExitOnError)
	getBalanceCmd := flag.NewFlagSet("getbalance", flag.ExitOnError)
	printChainCmd := flag.NewFlagSet("printchain", flag.ExitOnError)
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	sendCmd := flag.NewFlagSet("send", flag.ExitOnError)
	sendMine := sendCmd.Bool("m", false, "mine locally instead of relaying to the seed node")
	startCmd := flag.NewFlagSet("start", flag.ExitOnError)

	var err error
	switch os.Args[1] {
	case "createwallet":
		err = createWalletCmd.Parse(os.Args[2:])
	case "listaddresses":
		err = listAddressesCmd.Parse(os.Args[2:])
	case "reindex":
		err = reindexCmd.Parse(os.Args[2:])
	case "getbalance":
		err = getBalanceCmd.Parse(os.Args[2:])
	case "printchain":
		err = printChainCmd.Parse(os.Args[2:])
	case "create":
		err = createCmd.Parse(os.Args[2:])
	case "send":
		err = sendCmd.Parse(os.Args[2:])
	case "start":
		err = startCmd.Parse(os.Args[2:])
	default:
		cli.printUsage()
		os.Exit(1)
	}
	if err != nil {
		logf.Errorf("parsing arguments: %v", err)
		os.Exit(1)
	}

	switch {
	case createWalletCmd.Parsed():
		err = cli.createWallet(nodeId)
	case listAddressesCmd.Parsed():
		err = cli.listAddresses(nodeId)
	case reindexCmd.Parsed():
		err = cli.reindex(nodeId)
	case getBalanceCmd.Parsed():
		if getBalanceCmd.NArg() != 1 {
			getBalanceCmd.Usage()
			os.Exit(1)
		}
		err = cli.getBalance(getBalanceCmd.Arg(0), nodeId)
	case printChainCmd.Parsed():
		err = cli.printChain(nodeId)
	case createCmd.Parsed():
		if createCmd.NArg() != 1 {
			createCmd.Usage()
			os.Exit(1)
		}
		err = cli.create(createCmd.Arg(0), nodeId)
	case sendCmd.Parsed():
		args := sendCmd.Args()
		if len(args) > 3 {
			// Flags may also follow the positional arguments: send FROM TO AMOUNT -m.
			if perr := sendCmd.Parse(args[3:]); perr != nil || sendCmd.NArg() != 0 {
				sendCmd.Usage()
				os.Exit(1)
			}
			args = args[:3]
		}
		if len(args) != 3 {
			sendCmd.Usage()
			os.Exit(1)
		}
		amount, convErr := strconv.ParseInt(args[2], 10, 32)
		if convErr != nil {
			logf.Errorf("invalid amount %q: %v", args[2], convErr)
			os.Exit(1)
		}
		err = cli.send(args[0], args[1], int32(amount), nodeId, *sendMine)
	case startCmd.Parsed():
		if startCmd.NArg() != 1 {
			startCmd.Usage()
			os.Exit(1)
		}
		err = cli.start(nodeId, startCmd.Arg(0), os.Getenv("MINER_ADDRESS"))
	}

	if err != nil {
		logf.Errorf("%v", err)
		os.Exit(1)
	}
}

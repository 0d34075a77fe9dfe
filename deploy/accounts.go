package deploy

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fundme/commoncon"
	"github.com/fundme/util"
)

var ErrNoPrivateKey = errors.New("deploy: PRIVATE_KEY is required on live networks")

// 具名账户：deployer 为 0 号账户，user 为 1 号账户
type NamedAccounts struct {
	Deployer common.Address
	User     common.Address
	All      []common.Address
}

// 开发网络的确定性账户私钥，每次启动地址相同
func DevKeys(n int) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, n)
	for i := 0; i < n; i++ {
		seed := crypto.Keccak256([]byte(fmt.Sprintf("fundme development account %d", i)))
		k, err := crypto.ToECDSA(seed)
		if err != nil {
			return nil, fmt.Errorf("derive dev account %d: %w", i, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// 生成具名账户和初始余额分配
// 开发网络预置 DevAccountCount 个账户，每个 DevAccountEther；其它网络只使用 PRIVATE_KEY 对应的账户
func Accounts(network, privateKey string) (NamedAccounts, map[common.Address]*big.Int, error) {
	alloc := map[common.Address]*big.Int{}
	if IsDevelopmentChain(network) {
		keys, err := DevKeys(commoncon.DevAccountCount)
		if err != nil {
			return NamedAccounts{}, nil, err
		}
		var named NamedAccounts
		for _, k := range keys {
			addr := crypto.PubkeyToAddress(k.PublicKey)
			named.All = append(named.All, addr)
			alloc[addr] = util.Ether(commoncon.DevAccountEther)
		}
		named.Deployer, named.User = named.All[0], named.All[1]
		return named, alloc, nil
	}

	if privateKey == "" {
		return NamedAccounts{}, nil, ErrNoPrivateKey
	}
	k, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return NamedAccounts{}, nil, fmt.Errorf("parse PRIVATE_KEY: %w", err)
	}
	addr := crypto.PubkeyToAddress(k.PublicKey)
	// 外部网络的余额不在本地账本中，只登记账户以便发起交易
	alloc[addr] = new(big.Int)
	return NamedAccounts{Deployer: addr, User: addr, All: []common.Address{addr}}, alloc, nil
}

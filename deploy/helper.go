package deploy

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/util"
)

// 使用模拟喂价合约的本地网络
var DevelopmentChains = []string{"hardhat", "localhost"}

type NetworkInfo struct {
	Name            string
	EthUsdPriceFeed common.Address
}

// key: chainId
var NetworkConfig = map[int64]NetworkInfo{
	5: {
		Name:            "goerli",
		EthUsdPriceFeed: common.HexToAddress("0xD4a33860578De61DBAbDc8BFdb98FD742fA7028e"),
	},
	137: {
		Name:            "polygon",
		EthUsdPriceFeed: common.HexToAddress("0xF9680D99D6C9589e2a93a78A04A279e509205945"),
	},
}

// MockV3Aggregator 构造参数
const (
	Decimals      = "8"
	InitialAnswer = "200000000000"
)

func IsDevelopmentChain(network string) bool {
	return util.Contains(DevelopmentChains, network)
}

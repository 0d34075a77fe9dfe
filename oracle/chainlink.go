package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/fundme/meta"
)

const aggregatorV3ABI = `[
{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"latestRoundData","outputs":[
{"internalType":"uint80","name":"roundId","type":"uint80"},
{"internalType":"int256","name":"answer","type":"int256"},
{"internalType":"uint256","name":"startedAt","type":"uint256"},
{"internalType":"uint256","name":"updatedAt","type":"uint256"},
{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}
]`

var aggregatorABI = mustParseABI(aggregatorV3ABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ethclient.Client 满足此接口
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// 通过 eth_call 读取链上的 Chainlink 喂价合约
type ChainlinkFeed struct {
	caller  ContractCaller
	address common.Address
}

func NewChainlinkFeed(caller ContractCaller, address common.Address) *ChainlinkFeed {
	return &ChainlinkFeed{caller: caller, address: address}
}

// 连接 rpc 节点
func DialChainlinkFeed(ctx context.Context, rpcURL string, address common.Address) (*ChainlinkFeed, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return NewChainlinkFeed(client, address), nil
}

func (f *ChainlinkFeed) call(ctx context.Context, method string) ([]interface{}, error) {
	data, err := aggregatorABI.Pack(method)
	if err != nil {
		return nil, err
	}
	out, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	values, err := aggregatorABI.Unpack(method, out)
	if err != nil {
		return nil, unavailable(err)
	}
	return values, nil
}

func (f *ChainlinkFeed) Decimals(ctx context.Context) (uint8, error) {
	values, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected decimals type %T", ErrOracleUnavailable, values[0])
	}
	return d, nil
}

func (f *ChainlinkFeed) LatestRoundData(ctx context.Context) (meta.RoundData, error) {
	values, err := f.call(ctx, "latestRoundData")
	if err != nil {
		return meta.RoundData{}, err
	}
	if len(values) != 5 {
		return meta.RoundData{}, fmt.Errorf("%w: latestRoundData returned %d values", ErrOracleUnavailable, len(values))
	}
	ints := make([]*big.Int, len(values))
	for i, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return meta.RoundData{}, fmt.Errorf("%w: unexpected latestRoundData type %T", ErrOracleUnavailable, v)
		}
		ints[i] = n
	}
	return meta.RoundData{
		RoundId:         ints[0],
		Answer:          ints[1],
		StartedAt:       ints[2],
		UpdatedAt:       ints[3],
		AnsweredInRound: ints[4],
	}, nil
}

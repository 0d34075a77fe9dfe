package system

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
)

const (
	MockV3AggregatorName = "MockV3Aggregator"
	mockDescription      = "v0.6/tests/MockV3Aggregator.sol"
	mockVersion          = 0
)

// 存储布局
var (
	aggDecimals        = contract.NewVar(0)
	aggLatestAnswer    = contract.NewVar(1)
	aggLatestTimestamp = contract.NewVar(2)
	aggLatestRound     = contract.NewVar(3)
	aggGetAnswer       = contract.NewMapping(4)
	aggGetTimestamp    = contract.NewMapping(5)
	aggGetStartedAt    = contract.NewMapping(6)
)

/*
	开发网络使用的模拟喂价合约
	构造参数: decimals, initialAnswer
*/
type MockV3Aggregator struct {
	abi contract.ABI
}

func NewMockV3Aggregator(map[string]string) (contract.Contract, error) {
	m := &MockV3Aggregator{}
	m.abi = contract.ABI{
		contract.Constructor: {Fn: m.constructor},
		"decimals":           {Fn: m.decimals, View: true},
		"latestRoundData":    {Fn: m.latestRoundData, View: true},
		"getRoundData":       {Fn: m.getRoundData, View: true},
		"latestAnswer":       {Fn: m.latestAnswer, View: true},
		"latestTimestamp":    {Fn: m.latestTimestamp, View: true},
		"latestRound":        {Fn: m.latestRound, View: true},
		"version":            {Fn: m.version, View: true},
		"description":        {Fn: m.description, View: true},
		"updateAnswer":       {Fn: m.updateAnswer},
		"updateRoundData":    {Fn: m.updateRoundData},
	}
	return m, nil
}

func (m *MockV3Aggregator) Name() string {
	return MockV3AggregatorName
}

func (m *MockV3Aggregator) ABI() contract.ABI {
	return m.abi
}

func (m *MockV3Aggregator) constructor(ctx *contract.Context, args map[string]string) (interface{}, error) {
	decimals, err := contract.ArgUint64(args, "decimals")
	if err != nil {
		return nil, err
	}
	if decimals > 255 {
		return nil, contract.ErrInvalidArgument
	}
	aggDecimals.Set(ctx, contract.Uint64ToHash(decimals))
	answer, err := contract.ArgBig(args, "initialAnswer")
	if err != nil {
		return nil, err
	}
	m.setAnswer(ctx, answer)
	return nil, nil
}

func (m *MockV3Aggregator) setAnswer(ctx *contract.Context, answer *big.Int) {
	now := common.BigToHash(ctx.Timestamp())
	round := aggLatestRound.Get(ctx).Big()
	round.Add(round, big.NewInt(1))
	key := common.BigToHash(round)

	aggLatestAnswer.Set(ctx, contract.SignedToHash(answer))
	aggLatestTimestamp.Set(ctx, now)
	aggLatestRound.Set(ctx, key)
	aggGetAnswer.Set(ctx, key, contract.SignedToHash(answer))
	aggGetTimestamp.Set(ctx, key, now)
	aggGetStartedAt.Set(ctx, key, now)
}

func (m *MockV3Aggregator) decimals(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return uint8(aggDecimals.Get(ctx).Big().Uint64()), nil
}

func (m *MockV3Aggregator) roundData(ctx *contract.Context, round *big.Int) meta.RoundData {
	key := common.BigToHash(round)
	return meta.RoundData{
		RoundId:         new(big.Int).Set(round),
		Answer:          contract.HashToSigned(aggGetAnswer.Get(ctx, key)),
		StartedAt:       aggGetStartedAt.Get(ctx, key).Big(),
		UpdatedAt:       aggGetTimestamp.Get(ctx, key).Big(),
		AnsweredInRound: new(big.Int).Set(round),
	}
}

func (m *MockV3Aggregator) latestRoundData(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return m.roundData(ctx, aggLatestRound.Get(ctx).Big()), nil
}

func (m *MockV3Aggregator) getRoundData(ctx *contract.Context, args map[string]string) (interface{}, error) {
	round, err := contract.ArgBig(args, "roundId")
	if err != nil {
		return nil, err
	}
	return m.roundData(ctx, round), nil
}

func (m *MockV3Aggregator) latestAnswer(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return contract.HashToSigned(aggLatestAnswer.Get(ctx)).String(), nil
}

func (m *MockV3Aggregator) latestTimestamp(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return aggLatestTimestamp.Get(ctx).Big().String(), nil
}

func (m *MockV3Aggregator) latestRound(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return aggLatestRound.Get(ctx).Big().String(), nil
}

func (m *MockV3Aggregator) version(*contract.Context, map[string]string) (interface{}, error) {
	return mockVersion, nil
}

func (m *MockV3Aggregator) description(*contract.Context, map[string]string) (interface{}, error) {
	return mockDescription, nil
}

func (m *MockV3Aggregator) updateAnswer(ctx *contract.Context, args map[string]string) (interface{}, error) {
	answer, err := contract.ArgBig(args, "answer")
	if err != nil {
		return nil, err
	}
	m.setAnswer(ctx, answer)
	return nil, nil
}

// 直接写入指定轮次（用于构造过期、未完成的轮次）
func (m *MockV3Aggregator) updateRoundData(ctx *contract.Context, args map[string]string) (interface{}, error) {
	round, err := contract.ArgBig(args, "roundId")
	if err != nil {
		return nil, err
	}
	answer, err := contract.ArgBig(args, "answer")
	if err != nil {
		return nil, err
	}
	timestamp, err := contract.ArgBig(args, "timestamp")
	if err != nil {
		return nil, err
	}
	startedAt, err := contract.ArgBig(args, "startedAt")
	if err != nil {
		return nil, err
	}
	key := common.BigToHash(round)
	aggLatestRound.Set(ctx, key)
	aggLatestAnswer.Set(ctx, contract.SignedToHash(answer))
	aggLatestTimestamp.Set(ctx, common.BigToHash(timestamp))
	aggGetAnswer.Set(ctx, key, contract.SignedToHash(answer))
	aggGetTimestamp.Set(ctx, key, common.BigToHash(timestamp))
	aggGetStartedAt.Set(ctx, key, common.BigToHash(startedAt))
	return nil, nil
}

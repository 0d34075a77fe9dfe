package system

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/contract"
	"github.com/fundme/levelDB"
	"github.com/fundme/meta"
	"github.com/fundme/metrics"
	"github.com/fundme/oracle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deployer = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

type staticFeed struct {
	round meta.RoundData
	err   error
}

func (f staticFeed) Decimals(context.Context) (uint8, error) { return 8, f.err }
func (f staticFeed) LatestRoundData(context.Context) (meta.RoundData, error) {
	return f.round, f.err
}

func newRuntime(t *testing.T, source oracle.AggregatorV3Interface) *contract.Runtime {
	opts := append(Factories(),
		contract.WithFactory(PriceFeedProxyName, NewPriceFeedProxyFactory(source)),
		contract.WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	rt, err := contract.NewRuntime(levelDB.OpenMem(), opts...)
	require.NoError(t, err)
	require.NoError(t, rt.Allocate(map[common.Address]*big.Int{deployer: big.NewInt(1000)}))
	return rt
}

func deployMock(t *testing.T, rt *contract.Runtime) common.Address {
	r, err := rt.Deploy(deployer, MockV3AggregatorName, map[string]string{
		"decimals":      "8",
		"initialAnswer": "200000000000",
	}, nil)
	require.NoError(t, err)
	return r.ContractAddress
}

func TestMockV3Aggregator(t *testing.T) {
	rt := newRuntime(t, staticFeed{})
	addr := deployMock(t, rt)
	feed := NewQueryFeed(rt, addr)
	ctx := context.Background()

	round, err := feed.LatestRoundData(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", round.RoundId.String())
	assert.Equal(t, "200000000000", round.Answer.String())
	assert.Equal(t, "1", round.AnsweredInRound.String())
	assert.NotEqual(t, "0", round.UpdatedAt.String())

	price, err := oracle.GetPrice(ctx, feed)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000000", price.String())

	_, err = rt.Invoke(deployer, addr, "updateAnswer", map[string]string{"answer": "-1"}, nil)
	require.NoError(t, err)
	round, err = feed.LatestRoundData(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", round.RoundId.String())
	assert.Equal(t, "-1", round.Answer.String())
	_, err = oracle.GetPrice(ctx, feed)
	assert.ErrorIs(t, err, oracle.ErrOracleUnavailable)

	old, err := rt.Query(addr, "getRoundData", map[string]string{"roundId": "1"})
	require.NoError(t, err)
	assert.Equal(t, "200000000000", old.(meta.RoundData).Answer.String())

	desc, err := rt.Query(addr, "description", nil)
	require.NoError(t, err)
	assert.Equal(t, mockDescription, desc)
}

func TestMockV3AggregatorIncompleteRound(t *testing.T) {
	rt := newRuntime(t, staticFeed{})
	addr := deployMock(t, rt)
	_, err := rt.Invoke(deployer, addr, "updateRoundData", map[string]string{
		"roundId":   "7",
		"answer":    "100",
		"timestamp": "0",
		"startedAt": "0",
	}, nil)
	require.NoError(t, err)

	_, err = oracle.GetPrice(context.Background(), NewQueryFeed(rt, addr))
	assert.ErrorIs(t, err, oracle.ErrOracleUnavailable)
}

func TestMockV3AggregatorBadArgs(t *testing.T) {
	rt := newRuntime(t, staticFeed{})
	_, err := rt.Deploy(deployer, MockV3AggregatorName, map[string]string{"decimals": "x"}, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
}

func TestPriceFeedProxy(t *testing.T) {
	feedAddr := common.HexToAddress("0xD4a33860578De61DBAbDc8BFdb98FD742fA7028e")
	source := staticFeed{round: meta.RoundData{
		RoundId:         big.NewInt(2),
		Answer:          big.NewInt(150000000000),
		StartedAt:       big.NewInt(1),
		UpdatedAt:       big.NewInt(1),
		AnsweredInRound: big.NewInt(2),
	}}
	rt := newRuntime(t, source)
	require.NoError(t, rt.Predeploy(feedAddr, PriceFeedProxyName, map[string]string{"source": "test"}))

	price, err := oracle.GetPrice(context.Background(), NewQueryFeed(rt, feedAddr))
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000000", price.String())

	down := newRuntime(t, staticFeed{err: errors.New("rpc down")})
	require.NoError(t, down.Predeploy(feedAddr, PriceFeedProxyName, nil))
	_, err = oracle.GetPrice(context.Background(), NewQueryFeed(down, feedAddr))
	assert.ErrorIs(t, err, oracle.ErrOracleUnavailable)
}

func TestRejecterRefusesTransfers(t *testing.T) {
	rt := newRuntime(t, staticFeed{})
	r, err := rt.Deploy(deployer, RejecterName, nil, nil)
	require.NoError(t, err)

	_, err = rt.Send(deployer, r.ContractAddress, big.NewInt(1))
	assert.ErrorIs(t, err, contract.ErrMethodNotFound)
	assert.Equal(t, "1000", rt.Balance(deployer).String())
}

package system

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
	"github.com/fundme/oracle"
)

// QueryFeed 通过只读调用把链上的喂价合约当作 oracle.AggregatorV3Interface 使用
type QueryFeed struct {
	rt      *contract.Runtime
	address common.Address
}

func NewQueryFeed(rt *contract.Runtime, address common.Address) *QueryFeed {
	return &QueryFeed{rt: rt, address: address}
}

func (f *QueryFeed) Decimals(context.Context) (uint8, error) {
	v, err := f.rt.Query(f.address, "decimals", nil)
	if err != nil {
		return 0, err
	}
	d, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals returned %T", oracle.ErrOracleUnavailable, v)
	}
	return d, nil
}

func (f *QueryFeed) LatestRoundData(context.Context) (meta.RoundData, error) {
	v, err := f.rt.Query(f.address, "latestRoundData", nil)
	if err != nil {
		return meta.RoundData{}, err
	}
	r, ok := v.(meta.RoundData)
	if !ok {
		return meta.RoundData{}, fmt.Errorf("%w: latestRoundData returned %T", oracle.ErrOracleUnavailable, v)
	}
	return r, nil
}

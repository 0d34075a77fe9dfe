package system

import (
	"context"
	"time"

	"github.com/fundme/contract"
	"github.com/fundme/oracle"
)

const PriceFeedProxyName = "PriceFeedProxy"

// 单次读取喂价的超时
const feedTimeout = 5 * time.Second

// 代表外部网络上的喂价合约地址，读取转发给链下数据源
type PriceFeedProxy struct {
	source oracle.AggregatorV3Interface
}

func NewPriceFeedProxyFactory(source oracle.AggregatorV3Interface) contract.Factory {
	return func(map[string]string) (contract.Contract, error) {
		return &PriceFeedProxy{source: source}, nil
	}
}

func (p *PriceFeedProxy) Name() string {
	return PriceFeedProxyName
}

func (p *PriceFeedProxy) ABI() contract.ABI {
	return contract.ABI{
		"decimals":        {Fn: p.decimals, View: true},
		"latestRoundData": {Fn: p.latestRoundData, View: true},
	}
}

func (p *PriceFeedProxy) decimals(*contract.Context, map[string]string) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
	defer cancel()
	return p.source.Decimals(ctx)
}

func (p *PriceFeedProxy) latestRoundData(*contract.Context, map[string]string) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
	defer cancel()
	return p.source.LatestRoundData(ctx)
}

package system

import (
	"github.com/fundme/contract"
)

// 注册不依赖外部数据源的系统合约
func Factories() []contract.Option {
	return []contract.Option{
		contract.WithFactory(MockV3AggregatorName, NewMockV3Aggregator),
		contract.WithFactory(RejecterName, NewRejecter),
	}
}

package deploy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fundme/config"
	"github.com/fundme/contract"
	"github.com/fundme/contract/fundme"
	"github.com/fundme/contract/system"
	"github.com/fundme/oracle"
	"github.com/fundme/redis"
)

// 外部网络的喂价数据源，按 oracle.source 选择，外面套一层缓存
func FeedSource(ctx context.Context, cfg *config.Config, rdb *redis.Client) (oracle.AggregatorV3Interface, error) {
	var source oracle.AggregatorV3Interface
	switch cfg.Oracle.Source {
	case "chainlink", "":
		network, ok := cfg.CurrentNetwork()
		if !ok {
			return nil, fmt.Errorf("unknown network %s", cfg.Network)
		}
		info, ok := NetworkConfig[network.ChainId]
		if !ok {
			return nil, fmt.Errorf("no price feed configured for chain %d", network.ChainId)
		}
		feed, err := oracle.DialChainlinkFeed(ctx, network.URL, info.EthUsdPriceFeed)
		if err != nil {
			return nil, err
		}
		source = feed
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("oracle source redis requires redis.enabled")
		}
		source = oracle.NewRedisFeed(rdb, cfg.Redis.PriceKey)
	case "http":
		source = oracle.NewHTTPFeed(cfg.Oracle.HTTPURL, &http.Client{Timeout: 5 * time.Second})
	default:
		return nil, fmt.Errorf("unknown oracle source %q", cfg.Oracle.Source)
	}
	return oracle.NewCachedFeed(source, cfg.Oracle.CacheTTL), nil
}

// 构造 Runtime 需要注册的合约工厂
// 外部网络额外注册 PriceFeedProxy，节点重启后按名字重建
func RuntimeOptions(ctx context.Context, cfg *config.Config, rdb *redis.Client) ([]contract.Option, error) {
	opts := append(system.Factories(), fundme.Factory())
	if IsDevelopmentChain(cfg.Network) {
		return opts, nil
	}
	source, err := FeedSource(ctx, cfg, rdb)
	if err != nil {
		return nil, err
	}
	return append(opts, contract.WithFactory(system.PriceFeedProxyName, system.NewPriceFeedProxyFactory(source))), nil
}

package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/fundme/commoncon"
	"github.com/fundme/meta"
	"github.com/fundme/util"
)

var ErrOracleUnavailable = errors.New("oracle: price feed unavailable")

// 与 Chainlink 的 AggregatorV3Interface 对应的只读喂价接口
type AggregatorV3Interface interface {
	Decimals(ctx context.Context) (uint8, error)
	LatestRoundData(ctx context.Context) (meta.RoundData, error)
}

// 喂价的完整数据，链下数据源（redis、http）都以这个格式传输
type Report struct {
	Decimals uint8 `json:"decimals"`
	meta.RoundData
}

// 检查轮次数据是否可用
func CheckRound(round meta.RoundData) error {
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive answer", ErrOracleUnavailable)
	}
	if round.UpdatedAt == nil || round.UpdatedAt.Sign() == 0 {
		return fmt.Errorf("%w: incomplete round", ErrOracleUnavailable)
	}
	if round.AnsweredInRound != nil && round.RoundId != nil && round.AnsweredInRound.Cmp(round.RoundId) < 0 {
		return fmt.Errorf("%w: stale round %s answered in %s", ErrOracleUnavailable, round.RoundId, round.AnsweredInRound)
	}
	return nil
}

// 返回以18位小数表示的价格
func GetPrice(ctx context.Context, feed AggregatorV3Interface) (*big.Int, error) {
	round, err := feed.LatestRoundData(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := CheckRound(round); err != nil {
		return nil, err
	}
	decimals, err := feed.Decimals(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return normalize(round.Answer, decimals)
}

// nativeAmount 个最小单位的原生代币值多少美元（18位小数）
func GetConversionRate(ctx context.Context, nativeAmount *big.Int, feed AggregatorV3Interface) (*big.Int, error) {
	price, err := GetPrice(ctx, feed)
	if err != nil {
		return nil, err
	}
	product, err := util.SafeMul(price, nativeAmount)
	if err != nil {
		return nil, err
	}
	return product.Div(product, util.Exp10(commoncon.NativeDecimals)), nil
}

func normalize(answer *big.Int, decimals uint8) (*big.Int, error) {
	switch {
	case decimals < commoncon.NativeDecimals:
		return util.SafeMul(answer, util.Exp10(commoncon.NativeDecimals-int(decimals)))
	case decimals > commoncon.NativeDecimals:
		return new(big.Int).Div(answer, util.Exp10(int(decimals)-commoncon.NativeDecimals)), nil
	default:
		return new(big.Int).Set(answer), nil
	}
}

func unavailable(err error) error {
	if errors.Is(err, ErrOracleUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
}

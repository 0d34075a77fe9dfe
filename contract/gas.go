package contract

import (
	"errors"
	"fmt"
)

// 固定的gas价格表
const (
	GasTxBase      uint64 = 21000
	GasCreate      uint64 = 32000
	GasSLoad       uint64 = 2100
	GasSStoreSet   uint64 = 20000 // 零值 -> 非零值
	GasSStoreReset uint64 = 2900  // 其他写入
	GasCall        uint64 = 2600
	GasCallValue   uint64 = 9000
	GasMemoryWord  uint64 = 3
	GasLog         uint64 = 375
)

var ErrOutOfGas = errors.New("contract: out of gas")

type GasMeter struct {
	limit uint64
	used  uint64
}

func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit}
}

// 扣除gas，超过上限时返回 ErrOutOfGas 并把已用量记为上限
func (g *GasMeter) Consume(amount uint64, op string) error {
	left := g.limit - g.used
	if amount > left {
		g.used = g.limit
		return fmt.Errorf("%w: %s needs %d, %d left", ErrOutOfGas, op, amount, left)
	}
	g.used += amount
	return nil
}

func (g *GasMeter) Used() uint64 {
	return g.used
}

func (g *GasMeter) Limit() uint64 {
	return g.limit
}

package chain

import (
	"fmt"
	"io"
	"math/big"
	"sort"
	"strconv"

	"github.com/fundme/meta"
	"github.com/olekukonko/tablewriter"
)

// 单个合约方法的gas统计
type GasStat struct {
	Contract string
	Method   string
	Calls    int
	Min      uint64
	Max      uint64
	Avg      uint64
}

// 汇总成功交易的gas，按合约、方法排序
func BuildGasReport(receipts []meta.Receipt) []GasStat {
	type acc struct {
		stat  GasStat
		total uint64
	}
	byKey := map[[2]string]*acc{}
	for _, r := range receipts {
		if r.Status != meta.ReceiptStatusSuccess || r.Contract == "" {
			continue
		}
		key := [2]string{r.Contract, r.Method}
		a, ok := byKey[key]
		if !ok {
			a = &acc{stat: GasStat{Contract: r.Contract, Method: r.Method, Min: r.GasUsed}}
			byKey[key] = a
		}
		a.stat.Calls++
		a.total += r.GasUsed
		if r.GasUsed < a.stat.Min {
			a.stat.Min = r.GasUsed
		}
		if r.GasUsed > a.stat.Max {
			a.stat.Max = r.GasUsed
		}
	}
	stats := make([]GasStat, 0, len(byKey))
	for _, a := range byKey {
		a.stat.Avg = a.total / uint64(a.stat.Calls)
		stats = append(stats, a.stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Contract != stats[j].Contract {
			return stats[i].Contract < stats[j].Contract
		}
		return stats[i].Method < stats[j].Method
	})
	return stats
}

type ReportOptions struct {
	GasPriceGwei int64    // 为0时不输出费用列
	NativePrice  *big.Int // 一个原生代币的法币价格（18位小数）
	Currency     string
}

// 输出表格
func WriteGasReport(w io.Writer, stats []GasStat, opts ReportOptions) error {
	withCost := opts.GasPriceGwei > 0 && opts.NativePrice != nil
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	header := []string{"Contract", "Method", "Min", "Max", "Avg", "# calls"}
	if withCost {
		header = append(header, fmt.Sprintf("%s (avg)", opts.Currency))
	}
	table.SetHeader(header)
	for _, s := range stats {
		row := []string{
			s.Contract,
			s.Method,
			strconv.FormatUint(s.Min, 10),
			strconv.FormatUint(s.Max, 10),
			strconv.FormatUint(s.Avg, 10),
			strconv.Itoa(s.Calls),
		}
		if withCost {
			row = append(row, Cost(s.Avg, opts.GasPriceGwei, opts.NativePrice))
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

// gas * gasPrice(gwei) * 价格，保留两位小数
func Cost(gas uint64, gasPriceGwei int64, nativePrice *big.Int) string {
	wei := new(big.Int).Mul(new(big.Int).SetUint64(gas), big.NewInt(gasPriceGwei))
	wei.Mul(wei, big.NewInt(1e9))
	cost := new(big.Rat).SetFrac(new(big.Int).Mul(wei, nativePrice), new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil))
	return cost.FloatString(2)
}

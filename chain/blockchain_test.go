package chain

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/levelDB"
	"github.com/fundme/meta"
	"github.com/fundme/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenesisAndAppend(t *testing.T) {
	db := levelDB.OpenMem()
	c, err := NewChain(db)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Height())

	genesis, err := c.GetBlock(0)
	require.NoError(t, err)

	b := c.CreateNewBlock(
		[]meta.Transaction{{Id: "tx-1", Type: meta.Invoke}},
		[]meta.Receipt{{TxId: "tx-1", Status: meta.ReceiptStatusSuccess, GasUsed: 21000}},
		common.HexToHash("0x01"),
	)
	// 落盘前高度不变
	assert.Equal(t, 0, c.Height())
	batch := levelDB.NewBatch()
	require.NoError(t, c.StoreBlock(batch, b))
	require.NoError(t, db.Write(batch))
	c.Advance(b)

	assert.Equal(t, 1, c.Height())
	assert.Equal(t, genesis.Hash, b.PrevHash)
	assert.Equal(t, util.CalculateBlockHash(b), b.Hash)

	r, err := c.GetReceipt("tx-1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.BlockHeight)

	reopened, err := NewChain(db)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Height())
	receipts, err := reopened.Receipts()
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, uint64(21000), receipts[0].GasUsed)
}

func TestGetMissingBlock(t *testing.T) {
	c, err := NewChain(levelDB.OpenMem())
	require.NoError(t, err)
	_, err = c.GetBlock(9)
	assert.ErrorIs(t, err, levelDB.ErrNotFound)
}

func TestGasReport(t *testing.T) {
	receipts := []meta.Receipt{
		{Contract: "FundMe", Method: "fund", Status: meta.ReceiptStatusSuccess, GasUsed: 100},
		{Contract: "FundMe", Method: "fund", Status: meta.ReceiptStatusSuccess, GasUsed: 300},
		{Contract: "FundMe", Method: "fund", Status: meta.ReceiptStatusFailed, GasUsed: 1},
		{Contract: "FundMe", Method: "cheaperWithdraw", Status: meta.ReceiptStatusSuccess, GasUsed: 50},
		{Method: "", Status: meta.ReceiptStatusSuccess, GasUsed: 21000},
	}
	stats := BuildGasReport(receipts)
	require.Len(t, stats, 2)
	assert.Equal(t, GasStat{Contract: "FundMe", Method: "cheaperWithdraw", Calls: 1, Min: 50, Max: 50, Avg: 50}, stats[0])
	assert.Equal(t, GasStat{Contract: "FundMe", Method: "fund", Calls: 2, Min: 100, Max: 300, Avg: 200}, stats[1])

	var buf bytes.Buffer
	price := new(big.Int).Mul(big.NewInt(2000), util.Exp10(18))
	require.NoError(t, WriteGasReport(&buf, stats, ReportOptions{GasPriceGwei: 20, NativePrice: price, Currency: "USD"}))
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// 边框、表头、分隔线、两行数据、边框
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "+"))
	assert.Contains(t, lines[1], "Contract")
	assert.Contains(t, lines[1], "USD (avg)")
	assert.Contains(t, lines[3], "cheaperWithdraw")
	assert.Contains(t, lines[4], "fund")
	assert.Contains(t, lines[4], "0.01")
}

func TestCost(t *testing.T) {
	price := new(big.Int).Mul(big.NewInt(2000), util.Exp10(18))
	// 100000 gas * 20 gwei = 0.002 ether = 4 美元
	assert.Equal(t, "4.00", Cost(100000, 20, price))
}

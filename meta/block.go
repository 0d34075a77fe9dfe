package meta

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 交易类型
const (
	Transfer int = iota // 0: 转账交易
	Publish             // 1: 发布合约
	Invoke              // 2: 调用合约
)

type Transaction struct {
	Id        string            `json:"id"`
	From      common.Address    `json:"from"`
	To        common.Address    `json:"to"`
	Contract  string            `json:"contract"`
	Method    string            `json:"method"`
	Args      map[string]string `json:"args"`
	Value     *big.Int          `json:"value"`
	GasLimit  uint64            `json:"gas_limit"`
	Timestamp string            `json:"timestamp"`
	Hash      []byte            `json:"hash"`
	Type      int               `json:"type"`
	Nonce     *uint64           `json:"nonce,omitempty"` // 不为空时必须等于发起账户当前 nonce
}

// 交易执行状态
const (
	ReceiptStatusFailed  = 0
	ReceiptStatusSuccess = 1
)

type Receipt struct {
	TxId            string         `json:"tx_id"`
	BlockHeight     int            `json:"block_height"`
	Status          int            `json:"status"`
	GasUsed         uint64         `json:"gas_used"`
	Error           string         `json:"error,omitempty"`
	Logs            []Log          `json:"logs"`
	ContractAddress common.Address `json:"contract_address"`
	Contract        string         `json:"contract"`
	Method          string         `json:"method"`
	Return          interface{}    `json:"return,omitempty"`
}

// 合约事件
type Log struct {
	Address common.Address    `json:"address"`
	Name    string            `json:"name"`
	Args    map[string]string `json:"args"`
}

type Block struct {
	Height    int           `json:"height"`
	Timestamp string        `json:"timestamp"`
	PrevHash  []byte        `json:"prev_hash"`
	Hash      []byte        `json:"hash"`
	StateRoot common.Hash   `json:"state_root"` // 出块后的账户状态根
	TX        []Transaction `json:"tx"`
	Receipts  []Receipt     `json:"receipts"`
}

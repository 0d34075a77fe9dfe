package meta

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

//账户

type Account struct {
	Address    common.Address              `json:"address"`     //账户地址
	Balance    *big.Int                    `json:"balance"`     //账户余额
	Nonce      uint64                      `json:"nonce"`       //已发送交易数，用于生成合约地址
	Payable    bool                        `json:"payable"`     //能否接收转账（普通账户恒为true）
	IsContract bool                        `json:"is_contract"` //是否为合约账户
	Data       AccountData                 `json:"data"`
	Storage    map[common.Hash]common.Hash `json:"storage,omitempty"` //合约存储，零值不保存
}

type AccountData struct {
	ContractName string            `json:"contract_name"` //合约名称（用于节点重启后重建合约实例）
	Args         map[string]string `json:"args"`          //构造参数
}

// 深拷贝，避免调用方修改状态内的余额和存储
func (a Account) Copy() Account {
	cp := a
	if a.Balance != nil {
		cp.Balance = new(big.Int).Set(a.Balance)
	}
	if a.Data.Args != nil {
		cp.Data.Args = make(map[string]string, len(a.Data.Args))
		for k, v := range a.Data.Args {
			cp.Data.Args[k] = v
		}
	}
	if a.Storage != nil {
		cp.Storage = make(map[common.Hash]common.Hash, len(a.Storage))
		for k, v := range a.Storage {
			cp.Storage[k] = v
		}
	}
	return cp
}

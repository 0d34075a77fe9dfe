package contract

import (
	"errors"
)

// 特殊方法名
const (
	Constructor = "constructor" // 部署时执行一次，不能被外部调用
	Receive     = "receive"     // 不带方法名的转账
	Fallback    = "fallback"    // 方法不存在时执行
)

var (
	ErrNotPayable       = errors.New("contract: method is not payable")
	ErrMethodNotFound   = errors.New("contract: method not found")
	ErrContractNotFound = errors.New("contract: no contract at address")
	ErrUnknownContract  = errors.New("contract: unknown contract name")
	ErrUnknownSender    = errors.New("contract: unknown sender account")
	ErrCallDepth        = errors.New("contract: max call depth exceeded")
	ErrPanic            = errors.New("contract: execution panicked")
	ErrNonceMismatch    = errors.New("contract: nonce mismatch")
)

// 合约方法，返回值会写入交易回执
type Method func(ctx *Context, args map[string]string) (interface{}, error)

type Entry struct {
	Fn      Method
	Payable bool // 是否可以接收转账
	View    bool // 只读方法
}

type ABI map[string]Entry

// Contract 合约实例只保存不可变配置，状态全部在存储槽中
type Contract interface {
	Name() string
	ABI() ABI
}

// 根据部署参数构造合约实例，节点重启后也用它恢复合约
type Factory func(args map[string]string) (Contract, error)

// 根据方法名选出要执行的入口
func resolve(abi ABI, method string) (Entry, string, error) {
	if method == "" {
		if e, ok := abi[Receive]; ok {
			return e, Receive, nil
		}
	} else if method != Constructor && method != Receive && method != Fallback {
		if e, ok := abi[method]; ok {
			return e, method, nil
		}
	}
	if e, ok := abi[Fallback]; ok {
		return e, Fallback, nil
	}
	return Entry{}, method, ErrMethodNotFound
}

// 没有方法名的转账能否被接收
func acceptsPlainTransfer(abi ABI) bool {
	if e, ok := abi[Receive]; ok && e.Payable {
		return true
	}
	e, ok := abi[Fallback]
	return ok && e.Payable
}

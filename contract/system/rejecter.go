package system

import (
	"github.com/fundme/contract"
)

const RejecterName = "Rejecter"

var rejecterTarget = contract.NewVar(0)

// 不接收任何转账的合约。通过它部署的合约把它当作 owner，用来测试转账失败
type Rejecter struct{}

func NewRejecter(map[string]string) (contract.Contract, error) {
	return Rejecter{}, nil
}

func (Rejecter) Name() string {
	return RejecterName
}

func (r Rejecter) ABI() contract.ABI {
	return contract.ABI{
		"deploy": {Fn: r.deploy},
		"target": {Fn: r.target, View: true},
		"call":   {Fn: r.call},
	}
}

// 部署 args["contract"]，其余参数作为构造参数
func (Rejecter) deploy(ctx *contract.Context, args map[string]string) (interface{}, error) {
	name := args["contract"]
	ctorArgs := map[string]string{}
	for k, v := range args {
		if k != "contract" {
			ctorArgs[k] = v
		}
	}
	addr, err := ctx.Create(name, ctorArgs, nil)
	if err != nil {
		return nil, err
	}
	rejecterTarget.Set(ctx, contract.AddressToHash(addr))
	return addr, nil
}

func (Rejecter) target(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return contract.HashToAddress(rejecterTarget.Get(ctx)), nil
}

// 调用已部署合约的 args["method"]
func (Rejecter) call(ctx *contract.Context, args map[string]string) (interface{}, error) {
	to := contract.HashToAddress(rejecterTarget.Get(ctx))
	return ctx.Call(to, args["method"], nil)
}

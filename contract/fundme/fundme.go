package fundme

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
	"github.com/fundme/oracle"
	"github.com/fundme/util"
)

const Name = "FundMe"

// 最低存入 50 美元（18位小数）
var MinimumUSD = new(big.Int).Mul(big.NewInt(50), util.Exp10(18))

// 存储布局
var (
	sAddressToAmountFunded = contract.NewMapping(0)
	sFunders               = contract.NewAddressArray(1)
	sPriceFeed             = contract.NewVar(2)
	iOwner                 = contract.NewVar(3)
)

/*
	众筹合约：
	存入金额按喂价换算成美元后不低于 MinimumUSD 才接受
	只有 owner 可以取出全部余额，取款时清空所有记录
*/
type FundMe struct {
	abi contract.ABI
}

func New(map[string]string) (contract.Contract, error) {
	f := &FundMe{}
	f.abi = contract.ABI{
		contract.Constructor:       {Fn: f.constructor},
		"fund":                     {Fn: f.fund, Payable: true},
		contract.Receive:           {Fn: f.fund, Payable: true},
		contract.Fallback:          {Fn: f.fund, Payable: true},
		"withdraw":                 {Fn: f.withdraw},
		"cheaperWithdraw":          {Fn: f.cheaperWithdraw},
		"getAddressToAmountFunded": {Fn: f.getAddressToAmountFunded, View: true},
		"getFunder":                {Fn: f.getFunder, View: true},
		"getFundersCount":          {Fn: f.getFundersCount, View: true},
		"getPriceFeed":             {Fn: f.getPriceFeed, View: true},
		"getOwner":                 {Fn: f.getOwner, View: true},
		"MINIMUM_USD":              {Fn: f.minimumUSD, View: true},
	}
	return f, nil
}

func (f *FundMe) Name() string {
	return Name
}

func (f *FundMe) ABI() contract.ABI {
	return f.abi
}

func (f *FundMe) constructor(ctx *contract.Context, args map[string]string) (interface{}, error) {
	feed, err := contract.ArgAddress(args, "priceFeed")
	if err != nil {
		return nil, err
	}
	if feed == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero price feed", contract.ErrInvalidArgument)
	}
	sPriceFeed.Set(ctx, contract.AddressToHash(feed))
	iOwner.Set(ctx, contract.AddressToHash(ctx.Caller()))
	return nil, nil
}

func (f *FundMe) fund(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	value := ctx.Value()
	if value.Sign() == 0 {
		return nil, ErrInsufficientValue
	}
	feed := feedCaller{ctx: ctx, address: contract.HashToAddress(sPriceFeed.Get(ctx))}
	usd, err := oracle.GetConversionRate(context.Background(), value, feed)
	if err != nil {
		return nil, err
	}
	if usd.Cmp(MinimumUSD) < 0 {
		return nil, fmt.Errorf("%w: %s wei is worth %s usd", ErrInsufficientValue, value, usd)
	}

	funder := ctx.Caller()
	key := contract.AddressToHash(funder)
	current := sAddressToAmountFunded.Get(ctx, key).Big()
	next, err := util.SafeAdd(current, value)
	if err != nil {
		return nil, err
	}
	if current.Sign() == 0 {
		sFunders.Push(ctx, funder)
	}
	sAddressToAmountFunded.Set(ctx, key, common.BigToHash(next))
	ctx.Emit("Funded", map[string]string{
		"funder": funder.Hex(),
		"amount": value.String(),
		"usd":    usd.String(),
	})
	return nil, ctx.Err()
}

// 取款时遍历的出资人列表
type roster interface {
	Len() uint64
	At(i uint64) common.Address
}

// 每次都从存储读取
type storageRoster struct {
	ctx *contract.Context
}

func (r storageRoster) Len() uint64                { return sFunders.Len(r.ctx) }
func (r storageRoster) At(i uint64) common.Address { return sFunders.At(r.ctx, i) }

// 一次性复制到内存
type memoryRoster []common.Address

func (r memoryRoster) Len() uint64                { return uint64(len(r)) }
func (r memoryRoster) At(i uint64) common.Address { return r[i] }

func (f *FundMe) withdraw(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return f.withdrawWith(ctx, func(ctx *contract.Context) roster {
		return storageRoster{ctx: ctx}
	})
}

func (f *FundMe) cheaperWithdraw(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return f.withdrawWith(ctx, func(ctx *contract.Context) roster {
		return memoryRoster(sFunders.Load(ctx))
	})
}

// 两种取款共用：检查 owner，清零所有记录，清空列表，把全部余额转给 owner
func (f *FundMe) withdrawWith(ctx *contract.Context, load func(*contract.Context) roster) (interface{}, error) {
	owner := contract.HashToAddress(iOwner.Get(ctx))
	if ctx.Caller() != owner {
		return nil, ErrNotOwner
	}
	amount := ctx.Balance()
	funders := load(ctx)
	for i := uint64(0); i < funders.Len() && ctx.Err() == nil; i++ {
		sAddressToAmountFunded.Set(ctx, contract.AddressToHash(funders.At(i)), common.Hash{})
	}
	sFunders.Clear(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Transfer(owner, amount); err != nil {
		if errors.Is(err, contract.ErrOutOfGas) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransferFailure, err)
	}
	ctx.Emit("Withdrawn", map[string]string{
		"owner":  owner.Hex(),
		"amount": amount.String(),
	})
	return amount, ctx.Err()
}

func (f *FundMe) getAddressToAmountFunded(ctx *contract.Context, args map[string]string) (interface{}, error) {
	funder, err := contract.ArgAddress(args, "address")
	if err != nil {
		return nil, err
	}
	return sAddressToAmountFunded.Get(ctx, contract.AddressToHash(funder)).Big(), nil
}

func (f *FundMe) getFunder(ctx *contract.Context, args map[string]string) (interface{}, error) {
	index, err := contract.ArgUint64(args, "index")
	if err != nil {
		return nil, err
	}
	if n := sFunders.Len(ctx); index >= n {
		return nil, fmt.Errorf("%w: index %d, %d funders", ErrIndexOutOfRange, index, n)
	}
	return sFunders.At(ctx, index), nil
}

func (f *FundMe) getFundersCount(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return sFunders.Len(ctx), nil
}

func (f *FundMe) getPriceFeed(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return contract.HashToAddress(sPriceFeed.Get(ctx)), nil
}

func (f *FundMe) getOwner(ctx *contract.Context, _ map[string]string) (interface{}, error) {
	return contract.HashToAddress(iOwner.Get(ctx)), nil
}

func (f *FundMe) minimumUSD(*contract.Context, map[string]string) (interface{}, error) {
	return new(big.Int).Set(MinimumUSD), nil
}

// 通过合约调用读取喂价合约
type feedCaller struct {
	ctx     *contract.Context
	address common.Address
}

func (c feedCaller) Decimals(context.Context) (uint8, error) {
	v, err := c.ctx.Call(c.address, "decimals", nil)
	if err != nil {
		return 0, err
	}
	d, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals returned %T", oracle.ErrOracleUnavailable, v)
	}
	return d, nil
}

func (c feedCaller) LatestRoundData(context.Context) (meta.RoundData, error) {
	v, err := c.ctx.Call(c.address, "latestRoundData", nil)
	if err != nil {
		return meta.RoundData{}, err
	}
	r, ok := v.(meta.RoundData)
	if !ok {
		return meta.RoundData{}, fmt.Errorf("%w: latestRoundData returned %T", oracle.ErrOracleUnavailable, v)
	}
	return r, nil
}

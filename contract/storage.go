package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

/*
 * 存储布局与 EVM 一致：
 * 定长变量按声明顺序占用槽位 0,1,2...
 * mapping 的值在 keccak(key . slot)
 * 动态数组长度在 slot，元素在 keccak(slot)+i
 */

func Slot(n uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(n))
}

func MappingSlot(base, key common.Hash) common.Hash {
	return crypto.Keccak256Hash(key.Bytes(), base.Bytes())
}

func ArraySlot(base common.Hash, index uint64) common.Hash {
	start := new(big.Int).SetBytes(crypto.Keccak256(base.Bytes()))
	start.Add(start, new(big.Int).SetUint64(index))
	// BytesToHash 只保留低32字节，等价于 mod 2^256
	return common.BytesToHash(start.Bytes())
}

func AddressToHash(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func HashToAddress(h common.Hash) common.Address {
	return common.BytesToAddress(h.Bytes())
}

func Uint64ToHash(n uint64) common.Hash {
	return Slot(n)
}

// 单个存储变量
type Var struct {
	slot common.Hash
}

func NewVar(n uint64) Var {
	return Var{slot: Slot(n)}
}

func (v Var) Get(ctx *Context) common.Hash {
	return ctx.SLoad(v.slot)
}

func (v Var) Set(ctx *Context, value common.Hash) {
	ctx.SStore(v.slot, value)
}

// mapping(bytes32 => bytes32)
type Mapping struct {
	slot common.Hash
}

func NewMapping(n uint64) Mapping {
	return Mapping{slot: Slot(n)}
}

func (m Mapping) Get(ctx *Context, key common.Hash) common.Hash {
	return ctx.SLoad(MappingSlot(m.slot, key))
}

func (m Mapping) Set(ctx *Context, key, value common.Hash) {
	ctx.SStore(MappingSlot(m.slot, key), value)
}

// address[] 动态数组
type AddressArray struct {
	slot common.Hash
}

func NewAddressArray(n uint64) AddressArray {
	return AddressArray{slot: Slot(n)}
}

func (a AddressArray) Len(ctx *Context) uint64 {
	return ctx.SLoad(a.slot).Big().Uint64()
}

// 不做越界检查，由调用方保证 index < Len
func (a AddressArray) At(ctx *Context, index uint64) common.Address {
	return HashToAddress(ctx.SLoad(ArraySlot(a.slot, index)))
}

func (a AddressArray) Push(ctx *Context, addr common.Address) {
	n := a.Len(ctx)
	ctx.SStore(ArraySlot(a.slot, n), AddressToHash(addr))
	ctx.SStore(a.slot, Uint64ToHash(n+1))
}

// 复制到内存，之后的遍历不再读存储
func (a AddressArray) Load(ctx *Context) []common.Address {
	n := a.Len(ctx)
	out := make([]common.Address, 0, n)
	for i := uint64(0); i < n && ctx.Err() == nil; i++ {
		out = append(out, a.At(ctx, i))
	}
	ctx.MemoryCopy(len(out))
	return out
}

// 清空数组：元素槽和长度槽全部归零
func (a AddressArray) Clear(ctx *Context) {
	n := a.Len(ctx)
	for i := uint64(0); i < n && ctx.Err() == nil; i++ {
		ctx.SStore(ArraySlot(a.slot, i), common.Hash{})
	}
	ctx.SStore(a.slot, common.Hash{})
}

package util

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

// 所有金额按 uint256 处理，越界直接报错，不回绕
var (
	ErrOverflow  = errors.New("uint256 overflow")
	ErrUnderflow = errors.New("uint256 underflow")
)

func checkRange(v *big.Int) (*big.Int, error) {
	if v.Sign() < 0 {
		return nil, ErrUnderflow
	}
	if v.Cmp(math.MaxBig256) > 0 {
		return nil, ErrOverflow
	}
	return v, nil
}

func SafeAdd(a, b *big.Int) (*big.Int, error) {
	return checkRange(new(big.Int).Add(a, b))
}

func SafeSub(a, b *big.Int) (*big.Int, error) {
	return checkRange(new(big.Int).Sub(a, b))
}

func SafeMul(a, b *big.Int) (*big.Int, error) {
	return checkRange(new(big.Int).Mul(a, b))
}

// 整数除法，除数为0时视为下溢
func SafeDiv(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrUnderflow
	}
	return checkRange(new(big.Int).Quo(a, b))
}

// 10^n
func Exp10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// 将 ether 数量转换为 wei
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Exp10(18))
}

// 解析十进制或0x十六进制的金额字符串
func ParseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return new(big.Int), true
	}
	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

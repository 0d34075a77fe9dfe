package contract

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

var ErrInvalidArgument = errors.New("contract: invalid argument")

// 参数解析，参数统一以字符串传入

func ArgAddress(args map[string]string, key string) (common.Address, error) {
	v, ok := args[key]
	if !ok || !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, v)
	}
	return common.HexToAddress(v), nil
}

// 有符号 256 位整数，十进制或0x十六进制
func ArgBig(args map[string]string, key string) (*big.Int, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidArgument, key)
	}
	n, ok := math.ParseBig256(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, v)
	}
	return n, nil
}

func ArgUint64(args map[string]string, key string) (uint64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidArgument, key)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, v)
	}
	return n, nil
}

// 有符号整数按补码存入存储槽
func SignedToHash(n *big.Int) common.Hash {
	return common.BigToHash(math.U256(new(big.Int).Set(n)))
}

func HashToSigned(h common.Hash) *big.Int {
	return math.S256(h.Big())
}

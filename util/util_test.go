package util

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeMath(t *testing.T) {
	_, err := SafeAdd(math.MaxBig256, big.NewInt(1))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = SafeSub(big.NewInt(1), big.NewInt(2))
	assert.ErrorIs(t, err, ErrUnderflow)

	_, err = SafeMul(math.MaxBig256, big.NewInt(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = SafeDiv(big.NewInt(1), big.NewInt(0))
	assert.Error(t, err)

	v, err := SafeMul(Ether(3), big.NewInt(2000))
	require.NoError(t, err)
	assert.Equal(t, "6000000000000000000000", v.String())
}

func TestParseAmount(t *testing.T) {
	v, ok := ParseAmount("30000000000000000")
	require.True(t, ok)
	assert.Equal(t, "30000000000000000", v.String())

	v, ok = ParseAmount("0x10")
	require.True(t, ok)
	assert.Equal(t, "16", v.String())

	_, ok = ParseAmount("-1")
	assert.False(t, ok)
	_, ok = ParseAmount("abc")
	assert.False(t, ok)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"hardhat", "localhost"}, "localhost"))
	assert.False(t, Contains([]string{"hardhat", "localhost"}, "goerli"))
}

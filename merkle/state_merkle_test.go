package merkle

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accounts(n int) []meta.Account {
	var accs []meta.Account
	for i := 1; i <= n; i++ {
		accs = append(accs, meta.Account{
			Address: common.BigToAddress(big.NewInt(int64(i))),
			Balance: big.NewInt(int64(i * 100)),
			Payable: true,
		})
	}
	return accs
}

func TestEmptyRoot(t *testing.T) {
	assert.Equal(t, EmptyRoot, Root(nil))
}

func TestProofVerify(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8} {
		leaves, err := AccountLeaves(accounts(n))
		require.NoError(t, err)
		root := Root(leaves)
		for i, leaf := range leaves {
			proof, err := Proof(leaves, i)
			require.NoError(t, err)
			assert.True(t, Verify(root, leaf, proof), "n=%d i=%d", n, i)
		}
	}
}

func TestRootChangesWithState(t *testing.T) {
	accs := accounts(3)
	leaves, err := AccountLeaves(accs)
	require.NoError(t, err)
	before := Root(leaves)

	accs[1].Balance = big.NewInt(1)
	changed, err := AccountLeaves(accs)
	require.NoError(t, err)
	after := Root(changed)
	assert.NotEqual(t, before, after)

	proof, err := Proof(leaves, 1)
	require.NoError(t, err)
	assert.False(t, Verify(after, leaves[1], proof))
}

func TestProofOutOfRange(t *testing.T) {
	_, err := Proof(nil, 0)
	assert.Error(t, err)
}

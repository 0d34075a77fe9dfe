package account

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/fundme/levelDB"
	"github.com/fundme/merkle"
	"github.com/fundme/meta"
	"github.com/fundme/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	vault = common.HexToAddress("0x000000000000000000000000000000000000dead")
)

func TestTransfer(t *testing.T) {
	s := NewState(levelDB.OpenMem())
	_, err := s.CreateAccount(alice, big.NewInt(100))
	require.NoError(t, err)

	require.NoError(t, s.Transfer(alice, bob, big.NewInt(40)))
	assert.Equal(t, "60", s.GetBalance(alice).String())
	assert.Equal(t, "40", s.GetBalance(bob).String())

	err = s.Transfer(alice, bob, big.NewInt(61))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "60", s.GetBalance(alice).String())
}

func TestTransferToNonPayableContract(t *testing.T) {
	s := NewState(levelDB.OpenMem())
	_, err := s.CreateAccount(alice, big.NewInt(100))
	require.NoError(t, err)
	_, err = s.CreateContract(vault, "Rejecter", nil, false)
	require.NoError(t, err)

	err = s.Transfer(alice, vault, big.NewInt(1))
	assert.ErrorIs(t, err, ErrRecipientRejected)
	assert.Equal(t, "100", s.GetBalance(alice).String())
}

func TestAddBalanceOverflow(t *testing.T) {
	s := NewState(levelDB.OpenMem())
	_, err := s.CreateAccount(alice, math.MaxBig256)
	require.NoError(t, err)

	err = s.AddBalance(alice, big.NewInt(1))
	assert.ErrorIs(t, err, util.ErrOverflow)
	assert.Equal(t, math.MaxBig256.String(), s.GetBalance(alice).String())
}

func TestRevertToSnapshot(t *testing.T) {
	s := NewState(levelDB.OpenMem())
	_, err := s.CreateAccount(alice, big.NewInt(100))
	require.NoError(t, err)
	_, err = s.CreateContract(vault, "FundMe", nil, true)
	require.NoError(t, err)
	slot := common.BigToHash(big.NewInt(1))
	s.SetState(vault, slot, common.BigToHash(big.NewInt(7)))
	s.Finalise()

	snap := s.Snapshot()
	require.NoError(t, s.Transfer(alice, vault, big.NewInt(30)))
	s.SetState(vault, slot, common.Hash{})
	s.SetState(vault, common.BigToHash(big.NewInt(2)), common.BigToHash(big.NewInt(9)))
	s.IncNonce(alice)
	_, err = s.CreateAccount(bob, big.NewInt(5))
	require.NoError(t, err)

	s.RevertToSnapshot(snap)

	assert.Equal(t, "100", s.GetBalance(alice).String())
	assert.Equal(t, "0", s.GetBalance(vault).String())
	assert.Equal(t, uint64(0), s.GetNonce(alice))
	assert.False(t, s.ContainsAddress(bob))
	acc, ok := s.GetAccount(vault)
	require.True(t, ok)
	assert.Equal(t, map[common.Hash]common.Hash{slot: common.BigToHash(big.NewInt(7))}, acc.Storage)
}

func TestZeroSlotLeavesNoResidue(t *testing.T) {
	s := NewState(levelDB.OpenMem())
	_, err := s.CreateContract(vault, "FundMe", nil, true)
	require.NoError(t, err)
	slot := common.BigToHash(big.NewInt(3))

	s.SetState(vault, slot, common.BigToHash(big.NewInt(1)))
	s.SetState(vault, slot, common.Hash{})

	acc, _ := s.GetAccount(vault)
	assert.Empty(t, acc.Storage)
}

func TestPersistAndReload(t *testing.T) {
	db := levelDB.OpenMem()
	s := NewState(db)
	_, err := s.CreateAccount(alice, big.NewInt(100))
	require.NoError(t, err)
	_, err = s.CreateContract(vault, "FundMe", map[string]string{"priceFeed": "0x01"}, true)
	require.NoError(t, err)
	s.SetState(vault, common.Hash{}, common.BigToHash(big.NewInt(42)))

	batch := levelDB.NewBatch()
	require.NoError(t, s.PutIntoDisk(batch))
	require.NoError(t, db.Write(batch))
	s.Finalise()

	reloaded := NewState(db)
	require.NoError(t, reloaded.GetFromDisk())
	assert.Equal(t, "100", reloaded.GetBalance(alice).String())
	assert.True(t, reloaded.IsContractAccount(vault))
	assert.Equal(t, common.BigToHash(big.NewInt(42)), reloaded.GetState(vault, common.Hash{}))
	acc, _ := reloaded.GetAccount(vault)
	assert.Equal(t, "FundMe", acc.Data.ContractName)
	assert.Equal(t, "0x01", acc.Data.Args["priceFeed"])
	assert.Equal(t, []common.Address{vault, alice}, reloaded.GetTotalAddress())
}

func TestStateRootAndProof(t *testing.T) {
	s := NewState(levelDB.OpenMem())
	empty, err := s.Root()
	require.NoError(t, err)
	assert.Equal(t, merkle.EmptyRoot, empty)

	_, err = s.CreateAccount(alice, big.NewInt(100))
	require.NoError(t, err)
	_, err = s.CreateAccount(bob, big.NewInt(5))
	require.NoError(t, err)
	root, err := s.Root()
	require.NoError(t, err)

	acc, proof, err := s.Proof(bob)
	require.NoError(t, err)
	leaves, err := merkle.AccountLeaves([]meta.Account{acc})
	require.NoError(t, err)
	assert.True(t, merkle.Verify(root, leaves[0], proof))

	require.NoError(t, s.Transfer(alice, bob, big.NewInt(1)))
	next, err := s.Root()
	require.NoError(t, err)
	assert.NotEqual(t, root, next)
	assert.False(t, merkle.Verify(next, leaves[0], proof))

	_, _, err = s.Proof(vault)
	assert.Error(t, err)
}

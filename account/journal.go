package account

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// journal 记录每一次状态修改的旧值，用于回滚
type journalEntry interface {
	revert(s *State)
}

type createChange struct {
	address common.Address
}

func (c createChange) revert(s *State) {
	delete(s.accounts, c.address)
}

type balanceChange struct {
	address common.Address
	prev    *big.Int
}

func (c balanceChange) revert(s *State) {
	if acc, ok := s.accounts[c.address]; ok {
		acc.Balance = c.prev
	}
}

type nonceChange struct {
	address common.Address
	prev    uint64
}

func (c nonceChange) revert(s *State) {
	if acc, ok := s.accounts[c.address]; ok {
		acc.Nonce = c.prev
	}
}

type storageChange struct {
	address common.Address
	slot    common.Hash
	prev    common.Hash
}

func (c storageChange) revert(s *State) {
	if acc, ok := s.accounts[c.address]; ok {
		setSlot(acc, c.slot, c.prev)
	}
}

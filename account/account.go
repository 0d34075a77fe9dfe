package account

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/cloudflare/cfssl/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/commoncon"
	"github.com/fundme/levelDB"
	"github.com/fundme/merkle"
	"github.com/fundme/meta"
	"github.com/fundme/util"
	"github.com/syndtr/goleveldb/leveldb"
)

/* 这里封装了所有的对账户的操作
 * 普通账户和合约账户都保存在 State 中，合约存储挂在合约账户下
 * 每次修改都会记录到 journal，执行失败时可以整体回滚
 */

var (
	ErrInsufficientBalance = errors.New("account: insufficient balance")
	ErrRecipientRejected   = errors.New("account: recipient cannot accept transfer")
	ErrAccountExists       = errors.New("account: address already in use")
)

type State struct {
	db       *levelDB.Store
	accounts map[common.Address]*meta.Account // key: 账户地址 - val: 账户信息
	journal  []journalEntry
	dirty    map[common.Address]struct{} // 尚未落盘的账户
}

func NewState(db *levelDB.Store) *State {
	return &State{
		db:       db,
		accounts: map[common.Address]*meta.Account{},
		dirty:    map[common.Address]struct{}{},
	}
}

// 创建普通账户
func (s *State) CreateAccount(address common.Address, balance *big.Int) (meta.Account, error) {
	if _, ok := s.accounts[address]; ok {
		return meta.Account{}, fmt.Errorf("%w: %s", ErrAccountExists, address.Hex())
	}
	if balance == nil {
		balance = new(big.Int)
	}
	acc := &meta.Account{
		Address: address,
		Balance: new(big.Int).Set(balance),
		Payable: true,
	}
	s.insert(acc)
	return acc.Copy(), nil
}

// 创建智能合约账户
func (s *State) CreateContract(address common.Address, name string, args map[string]string, payable bool) (meta.Account, error) {
	if _, ok := s.accounts[address]; ok {
		return meta.Account{}, fmt.Errorf("%w: %s", ErrAccountExists, address.Hex())
	}
	acc := &meta.Account{
		Address:    address,
		Balance:    new(big.Int),
		Payable:    payable,
		IsContract: true,
		Data: meta.AccountData{
			ContractName: name,
			Args:         args,
		},
	}
	s.insert(acc)
	return acc.Copy(), nil
}

func (s *State) insert(acc *meta.Account) {
	s.accounts[acc.Address] = acc
	s.journal = append(s.journal, createChange{address: acc.Address})
	s.dirty[acc.Address] = struct{}{}
}

// 账户地址是否存在
func (s *State) ContainsAddress(address common.Address) bool {
	_, ok := s.accounts[address]
	return ok
}

// 获取账户信息（拷贝）
func (s *State) GetAccount(address common.Address) (meta.Account, bool) {
	acc, ok := s.accounts[address]
	if !ok {
		return meta.Account{}, false
	}
	return acc.Copy(), true
}

func (s *State) GetBalance(address common.Address) *big.Int {
	acc, ok := s.accounts[address]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(acc.Balance)
}

func (s *State) GetNonce(address common.Address) uint64 {
	if acc, ok := s.accounts[address]; ok {
		return acc.Nonce
	}
	return 0
}

func (s *State) IncNonce(address common.Address) {
	acc := s.getOrCreate(address)
	s.journal = append(s.journal, nonceChange{address: address, prev: acc.Nonce})
	acc.Nonce++
	s.dirty[address] = struct{}{}
}

// 判断交易发起方是否有足够余额
func (s *State) CanTransfer(sender common.Address, amount *big.Int) bool {
	return s.GetBalance(sender).Cmp(amount) >= 0
}

func (s *State) AddBalance(receiver common.Address, amount *big.Int) error {
	acc := s.getOrCreate(receiver)
	next, err := util.SafeAdd(acc.Balance, amount)
	if err != nil {
		return fmt.Errorf("add balance %s: %w", receiver.Hex(), err)
	}
	s.setBalance(acc, next)
	return nil
}

func (s *State) SubBalance(sender common.Address, amount *big.Int) error {
	acc, ok := s.accounts[sender]
	if !ok || acc.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, sender.Hex())
	}
	next, err := util.SafeSub(acc.Balance, amount)
	if err != nil {
		return err
	}
	s.setBalance(acc, next)
	return nil
}

func (s *State) setBalance(acc *meta.Account, next *big.Int) {
	s.journal = append(s.journal, balanceChange{address: acc.Address, prev: acc.Balance})
	acc.Balance = next
	s.dirty[acc.Address] = struct{}{}
}

// from 向 to 转账；to 为不可收款的合约账户时失败
func (s *State) Transfer(from, to common.Address, amount *big.Int) error {
	if acc, ok := s.accounts[to]; ok && !acc.Payable {
		return fmt.Errorf("%w: %s", ErrRecipientRejected, to.Hex())
	}
	if amount.Sign() == 0 {
		return nil
	}
	if !s.CanTransfer(from, amount) {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, from.Hex())
	}
	if err := s.SubBalance(from, amount); err != nil {
		return err
	}
	return s.AddBalance(to, amount)
}

// 读取合约存储，未设置的槽位为零值
func (s *State) GetState(address common.Address, slot common.Hash) common.Hash {
	acc, ok := s.accounts[address]
	if !ok || acc.Storage == nil {
		return common.Hash{}
	}
	return acc.Storage[slot]
}

// 写入合约存储，写零值即删除该槽位
func (s *State) SetState(address common.Address, slot, value common.Hash) {
	acc := s.getOrCreate(address)
	prev := common.Hash{}
	if acc.Storage != nil {
		prev = acc.Storage[slot]
	}
	s.journal = append(s.journal, storageChange{address: address, slot: slot, prev: prev})
	setSlot(acc, slot, value)
	s.dirty[address] = struct{}{}
}

func setSlot(acc *meta.Account, slot, value common.Hash) {
	if value == (common.Hash{}) {
		delete(acc.Storage, slot)
		return
	}
	if acc.Storage == nil {
		acc.Storage = map[common.Hash]common.Hash{}
	}
	acc.Storage[slot] = value
}

func (s *State) getOrCreate(address common.Address) *meta.Account {
	acc, ok := s.accounts[address]
	if !ok {
		acc = &meta.Account{Address: address, Balance: new(big.Int), Payable: true}
		s.insert(acc)
	}
	return acc
}

// 获取所有的账户地址（按地址排序）
func (s *State) GetTotalAddress() []common.Address {
	var totalAddress []common.Address
	for address := range s.accounts {
		totalAddress = append(totalAddress, address)
	}
	sort.Slice(totalAddress, func(i, j int) bool {
		return bytes.Compare(totalAddress[i][:], totalAddress[j][:]) < 0
	})
	return totalAddress
}

// 当前账户状态的 merkle 根
func (s *State) Root() (common.Hash, error) {
	addresses := s.GetTotalAddress()
	accounts := make([]meta.Account, 0, len(addresses))
	for _, address := range addresses {
		accounts = append(accounts, *s.accounts[address])
	}
	leaves, err := merkle.AccountLeaves(accounts)
	if err != nil {
		return common.Hash{}, err
	}
	return merkle.Root(leaves), nil
}

// 账户的存在性证明
func (s *State) Proof(address common.Address) (meta.Account, []merkle.ProofNode, error) {
	addresses := s.GetTotalAddress()
	index := -1
	accounts := make([]meta.Account, 0, len(addresses))
	for i, a := range addresses {
		if a == address {
			index = i
		}
		accounts = append(accounts, *s.accounts[a])
	}
	if index < 0 {
		return meta.Account{}, nil, fmt.Errorf("no account %s", address.Hex())
	}
	leaves, err := merkle.AccountLeaves(accounts)
	if err != nil {
		return meta.Account{}, nil, err
	}
	proof, err := merkle.Proof(leaves, index)
	if err != nil {
		return meta.Account{}, nil, err
	}
	return accounts[index].Copy(), proof, nil
}

// 是否为智能合约账户
func (s *State) IsContractAccount(address common.Address) bool {
	acc, ok := s.accounts[address]
	return ok && acc.IsContract
}

// 当前 journal 位置，作为快照id
func (s *State) Snapshot() int {
	return len(s.journal)
}

// 回滚到快照，撤销之后的所有修改
func (s *State) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		log.Errorf("[RevertToSnapshot]: invalid snapshot id %d (journal %d)", id, len(s.journal))
		return
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i].revert(s)
	}
	s.journal = s.journal[:id]
}

// 持久化：把所有脏账户写入batch（与区块一起原子落盘）
func (s *State) PutIntoDisk(batch *leveldb.Batch) error {
	for address := range s.dirty {
		key := []byte(commoncon.AccountKeyPrefix + address.Hex())
		acc, ok := s.accounts[address]
		if !ok {
			batch.Delete(key)
			continue
		}
		data, err := json.Marshal(acc)
		if err != nil {
			return fmt.Errorf("marshal account %s: %w", address.Hex(), err)
		}
		batch.Put(key, data)
	}
	return nil
}

// batch写入成功后调用，清空 journal 和脏标记
func (s *State) Finalise() {
	s.journal = s.journal[:0]
	s.dirty = map[common.Address]struct{}{}
}

// 从磁盘获取已有的账户信息（在节点启动时执行）
func (s *State) GetFromDisk() error {
	accounts := map[common.Address]*meta.Account{}
	err := s.db.Iterate(commoncon.AccountKeyPrefix, func(key string, value []byte) bool {
		var acc meta.Account
		if err := json.Unmarshal(value, &acc); err != nil {
			util.DealJsonErr("GetFromDisk", err)
			return true
		}
		if acc.Balance == nil {
			acc.Balance = new(big.Int)
		}
		accounts[acc.Address] = &acc
		return true
	})
	if err != nil {
		return err
	}
	s.accounts = accounts
	s.Finalise()
	log.Infof("loaded %d accounts from disk", len(accounts))
	return nil
}

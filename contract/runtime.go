package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fundme/account"
	"github.com/fundme/chain"
	"github.com/fundme/commoncon"
	"github.com/fundme/event"
	"github.com/fundme/levelDB"
	"github.com/fundme/merkle"
	"github.com/fundme/meta"
	"github.com/fundme/metrics"
	"github.com/fundme/util"
	"github.com/google/uuid"
)

// 最大调用深度
const MaxCallDepth = 64

/*
 * Runtime 串行执行所有交易：
 * 每笔交易在快照内执行，失败时回滚快照（nonce 除外），成功或失败都会打包成一个区块
 * 账户状态、区块、回执在同一个 leveldb batch 中落盘
 */
type Runtime struct {
	mu        sync.Mutex
	db        *levelDB.Store
	state     *account.State
	chain     *chain.Chain
	contracts map[common.Address]Contract
	factories map[string]Factory
	sink      event.Sink
	metrics   *metrics.Metrics
}

type Option func(*Runtime)

func WithFactory(name string, f Factory) Option {
	return func(rt *Runtime) {
		rt.factories[name] = f
	}
}

func WithSink(s event.Sink) Option {
	return func(rt *Runtime) {
		rt.sink = s
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(rt *Runtime) {
		rt.metrics = m
	}
}

// 加载账户和区块，并用工厂函数恢复所有已部署的合约
func NewRuntime(db *levelDB.Store, opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		db:        db,
		state:     account.NewState(db),
		contracts: map[common.Address]Contract{},
		factories: map[string]Factory{},
		sink:      event.NopSink{},
		metrics:   metrics.Default,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if err := rt.state.GetFromDisk(); err != nil {
		return nil, err
	}
	c, err := chain.NewChain(db)
	if err != nil {
		return nil, err
	}
	rt.chain = c
	for _, addr := range rt.state.GetTotalAddress() {
		acc, _ := rt.state.GetAccount(addr)
		if !acc.IsContract {
			continue
		}
		inst, err := rt.build(acc.Data.ContractName, acc.Data.Args)
		if err != nil {
			return nil, fmt.Errorf("restore contract %s at %s: %w", acc.Data.ContractName, addr.Hex(), err)
		}
		rt.contracts[addr] = inst
	}
	return rt, nil
}

func (rt *Runtime) build(name string, args map[string]string) (Contract, error) {
	f, ok := rt.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	return f(args)
}

// 给账户分配初始余额（已存在的账户跳过）
func (rt *Runtime) Allocate(alloc map[common.Address]*big.Int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	snap := rt.state.Snapshot()
	for addr, balance := range alloc {
		if rt.state.ContainsAddress(addr) {
			continue
		}
		if _, err := rt.state.CreateAccount(addr, balance); err != nil {
			rt.state.RevertToSnapshot(snap)
			return err
		}
	}
	batch := levelDB.NewBatch()
	if err := rt.state.PutIntoDisk(batch); err != nil {
		rt.state.RevertToSnapshot(snap)
		return err
	}
	if err := rt.db.Write(batch); err != nil {
		rt.state.RevertToSnapshot(snap)
		return err
	}
	rt.state.Finalise()
	return nil
}

// 在指定地址预置合约（不经过交易，不执行构造函数），用于代表外部链上已存在的合约
func (rt *Runtime) Predeploy(address common.Address, name string, args map[string]string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.state.ContainsAddress(address) {
		return fmt.Errorf("%w: %s", account.ErrAccountExists, address.Hex())
	}
	inst, err := rt.build(name, args)
	if err != nil {
		return err
	}
	snap := rt.state.Snapshot()
	if _, err := rt.state.CreateContract(address, inst.Name(), args, acceptsPlainTransfer(inst.ABI())); err != nil {
		return err
	}
	batch := levelDB.NewBatch()
	if err := rt.state.PutIntoDisk(batch); err != nil {
		rt.state.RevertToSnapshot(snap)
		return err
	}
	if err := rt.db.Write(batch); err != nil {
		rt.state.RevertToSnapshot(snap)
		return err
	}
	rt.state.Finalise()
	rt.contracts[address] = inst
	return nil
}

// 部署合约
func (rt *Runtime) Deploy(from common.Address, name string, args map[string]string, value *big.Int) (meta.Receipt, error) {
	return rt.Execute(meta.Transaction{
		From:     from,
		Contract: name,
		Method:   Constructor,
		Args:     args,
		Value:    value,
		Type:     meta.Publish,
	})
}

// 调用合约方法
func (rt *Runtime) Invoke(from, to common.Address, method string, args map[string]string, value *big.Int) (meta.Receipt, error) {
	return rt.Execute(meta.Transaction{
		From:   from,
		To:     to,
		Method: method,
		Args:   args,
		Value:  value,
		Type:   meta.Invoke,
	})
}

// 不带方法名的转账，目标为合约时执行 receive/fallback
func (rt *Runtime) Send(from, to common.Address, value *big.Int) (meta.Receipt, error) {
	return rt.Execute(meta.Transaction{
		From:  from,
		To:    to,
		Value: value,
		Type:  meta.Transfer,
	})
}

type result struct {
	ret     interface{}
	address common.Address
}

// 执行一笔交易并出块。交易被打包时返回的回执有效，err 为执行失败的原因
func (rt *Runtime) Execute(tx meta.Transaction) (meta.Receipt, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if tx.Id == "" {
		tx.Id = uuid.NewString()
	}
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}
	if tx.GasLimit == 0 {
		tx.GasLimit = commoncon.DefaultGasLimit
	}
	tx.Timestamp = time.Now().String()
	tx.Hash = util.CalculateTxHash(tx)

	if !rt.state.ContainsAddress(tx.From) {
		return meta.Receipt{}, fmt.Errorf("%w: %s", ErrUnknownSender, tx.From.Hex())
	}
	// nonce 不符的交易不上链
	if tx.Nonce != nil {
		if cur := rt.state.GetNonce(tx.From); *tx.Nonce != cur {
			return meta.Receipt{}, fmt.Errorf("%w: want %d, got %d", ErrNonceMismatch, cur, *tx.Nonce)
		}
	}

	exec := newExecution(tx.GasLimit)
	receipt := meta.Receipt{
		TxId:     tx.Id,
		Contract: tx.Contract,
		Method:   tx.Method,
	}
	outer := rt.state.Snapshot()
	nonce := rt.state.GetNonce(tx.From)
	rt.state.IncNonce(tx.From)
	snap := rt.state.Snapshot()

	res, err := rt.safeApply(exec, tx, nonce)
	if err == nil {
		err = exec.err
	}
	receipt.GasUsed = exec.gas.Used()
	if err != nil {
		rt.state.RevertToSnapshot(snap)
		receipt.Status = meta.ReceiptStatusFailed
		receipt.Error = err.Error()
		log.Warningf("tx %s reverted: %s", tx.Id, err)
	} else {
		receipt.Status = meta.ReceiptStatusSuccess
		receipt.Logs = exec.logs
		receipt.Return = res.ret
		receipt.ContractAddress = res.address
	}
	if inst, ok := rt.contracts[tx.To]; ok && tx.Type != meta.Publish {
		receipt.ContractAddress = tx.To
		receipt.Contract = inst.Name()
	}

	mined, cerr := rt.commit(tx, receipt)
	if cerr != nil {
		rt.state.RevertToSnapshot(outer)
		log.Errorf("commit tx %s error: %s", tx.Id, cerr)
		return meta.Receipt{}, cerr
	}
	if err == nil {
		for addr, inst := range exec.deployed {
			rt.contracts[addr] = inst
		}
	}
	rt.metrics.ObserveReceipt(mined)
	if err == nil && len(mined.Logs) > 0 {
		// 事件投递失败不影响交易
		if perr := rt.sink.Publish(context.Background(), mined.Logs); perr != nil {
			log.Errorf("publish events of tx %s error: %s", tx.Id, perr)
		}
	}
	return mined, err
}

// 合约方法 panic 时按执行失败处理，由调用方回滚快照
func (rt *Runtime) safeApply(exec *execution, tx meta.Transaction, nonce uint64) (res result, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("tx %s panicked: %v", tx.Id, p)
			res, err = result{}, fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return rt.apply(exec, tx, nonce)
}

func (rt *Runtime) apply(exec *execution, tx meta.Transaction, nonce uint64) (result, error) {
	if err := exec.gas.Consume(GasTxBase, "TX"); err != nil {
		return result{}, err
	}
	switch tx.Type {
	case meta.Publish:
		addr, err := rt.create(exec, tx.From, tx.From, nonce, tx.Contract, tx.Args, tx.Value)
		return result{address: addr}, err
	case meta.Invoke, meta.Transfer:
		if !rt.state.IsContractAccount(tx.To) {
			if tx.Type == meta.Invoke {
				return result{}, fmt.Errorf("%w: %s", ErrContractNotFound, tx.To.Hex())
			}
			return result{}, rt.state.Transfer(tx.From, tx.To, tx.Value)
		}
		method := tx.Method
		if tx.Type == meta.Transfer {
			method = ""
		}
		ret, err := rt.call(exec, frame{
			Address: tx.To,
			Method:  method,
			Args:    tx.Args,
			Caller:  tx.From,
			Origin:  tx.From,
			Value:   tx.Value,
		})
		return result{ret: ret}, err
	default:
		return result{}, fmt.Errorf("unknown transaction type %d", tx.Type)
	}
}

func (rt *Runtime) create(exec *execution, from, origin common.Address, nonce uint64, name string, args map[string]string, value *big.Int) (common.Address, error) {
	if err := exec.gas.Consume(GasCreate, "CREATE"); err != nil {
		return common.Address{}, err
	}
	if exec.stack.Depth() >= MaxCallDepth {
		return common.Address{}, ErrCallDepth
	}
	inst, err := rt.build(name, args)
	if err != nil {
		return common.Address{}, err
	}
	abi := inst.ABI()
	entry, hasCtor := abi[Constructor]
	if value.Sign() > 0 && !(hasCtor && entry.Payable) {
		return common.Address{}, fmt.Errorf("%w: %s.%s", ErrNotPayable, inst.Name(), Constructor)
	}

	addr := crypto.CreateAddress(from, nonce)
	if _, err := rt.state.CreateContract(addr, inst.Name(), args, acceptsPlainTransfer(abi)); err != nil {
		return common.Address{}, err
	}
	if value.Sign() > 0 {
		if err := rt.moveValue(from, addr, value); err != nil {
			return common.Address{}, err
		}
	}
	exec.deployed[addr] = inst
	if hasCtor {
		f := frame{
			Name:    inst.Name(),
			Address: addr,
			Method:  Constructor,
			Args:    args,
			Caller:  from,
			Origin:  origin,
			Value:   value,
		}
		exec.stack.Push(f)
		defer exec.stack.Pop()
		rt.dumpFrame(f)
		if _, err := entry.Fn(&Context{rt: rt, exec: exec, frame: f}, args); err != nil {
			return common.Address{}, err
		}
		if exec.err != nil {
			return common.Address{}, exec.err
		}
	}
	log.Infof("合约 %s 部署在 %s", inst.Name(), addr.Hex())
	return addr, nil
}

// 执行一个调用帧：先转账，再执行方法
func (rt *Runtime) call(exec *execution, f frame) (interface{}, error) {
	inst, ok := rt.contracts[f.Address]
	if !ok {
		inst, ok = exec.deployed[f.Address]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, f.Address.Hex())
	}
	if exec.stack.Depth() >= MaxCallDepth {
		return nil, ErrCallDepth
	}
	entry, method, err := resolve(inst.ABI(), f.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", err, inst.Name(), f.Method)
	}
	if f.Value == nil {
		f.Value = new(big.Int)
	}
	if f.Value.Sign() > 0 {
		if !entry.Payable {
			return nil, fmt.Errorf("%w: %s.%s", ErrNotPayable, inst.Name(), method)
		}
		if err := rt.moveValue(f.Caller, f.Address, f.Value); err != nil {
			return nil, err
		}
	}
	f.Name = inst.Name()
	f.Method = method

	exec.stack.Push(f)
	defer exec.stack.Pop()
	rt.dumpFrame(f)

	ret, err := entry.Fn(&Context{rt: rt, exec: exec, frame: f}, f.Args)
	if err != nil {
		return nil, err
	}
	return ret, exec.err
}

// 调用方法时的转账不检查收款方能否接收普通转账，方法本身的 Payable 已经检查过
func (rt *Runtime) moveValue(from, to common.Address, amount *big.Int) error {
	if err := rt.state.SubBalance(from, amount); err != nil {
		return err
	}
	return rt.state.AddBalance(to, amount)
}

func (rt *Runtime) dumpFrame(f frame) {
	if log.Level <= log.LevelDebug {
		log.Debugf("当前合约调用帧: %s", spew.Sdump(f))
	}
}

// 出块并把状态、区块、回执一起落盘
func (rt *Runtime) commit(tx meta.Transaction, r meta.Receipt) (meta.Receipt, error) {
	root, err := rt.state.Root()
	if err != nil {
		return meta.Receipt{}, err
	}
	block := rt.chain.CreateNewBlock([]meta.Transaction{tx}, []meta.Receipt{r}, root)
	batch := levelDB.NewBatch()
	if err := rt.state.PutIntoDisk(batch); err != nil {
		return meta.Receipt{}, err
	}
	if err := rt.chain.StoreBlock(batch, block); err != nil {
		return meta.Receipt{}, err
	}
	if err := rt.db.Write(batch); err != nil {
		return meta.Receipt{}, err
	}
	rt.chain.Advance(block)
	rt.state.Finalise()
	return block.Receipts[0], nil
}

// 账户及其相对于当前状态根的证明，出块后与最新区块的 StateRoot 一致
func (rt *Runtime) Proof(address common.Address) (meta.Account, []merkle.ProofNode, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state.Proof(address)
}

// 只读调用，执行完总是回滚
func (rt *Runtime) Query(to common.Address, method string, args map[string]string) (ret interface{}, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	snap := rt.state.Snapshot()
	defer rt.state.RevertToSnapshot(snap)
	defer func() {
		if p := recover(); p != nil {
			ret, err = nil, fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return rt.call(newExecution(commoncon.DefaultGasLimit), frame{
		Address: to,
		Method:  method,
		Args:    args,
		Value:   new(big.Int),
	})
}

func (rt *Runtime) Balance(address common.Address) *big.Int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state.GetBalance(address)
}

func (rt *Runtime) Nonce(address common.Address) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state.GetNonce(address)
}

func (rt *Runtime) Account(address common.Address) (meta.Account, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state.GetAccount(address)
}

// 合约存储的拷贝
func (rt *Runtime) Storage(address common.Address) map[common.Hash]common.Hash {
	acc, ok := rt.Account(address)
	if !ok || acc.Storage == nil {
		return map[common.Hash]common.Hash{}
	}
	return acc.Storage
}

func (rt *Runtime) ContractAt(address common.Address) (Contract, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	c, ok := rt.contracts[address]
	return c, ok
}

func (rt *Runtime) Height() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.chain.Height()
}

func (rt *Runtime) Block(height int) (meta.Block, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.chain.GetBlock(height)
}

func (rt *Runtime) Receipt(txId string) (meta.Receipt, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.chain.GetReceipt(txId)
}

func (rt *Runtime) Receipts() ([]meta.Receipt, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.chain.Receipts()
}

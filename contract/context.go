package contract

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/account"
	"github.com/fundme/meta"
)

// 合约调用帧
type frame struct {
	Name    string            // 当前执行的合约的名称
	Address common.Address    // 合约地址
	Method  string            // 被调用的方法
	Args    map[string]string // 参数
	Caller  common.Address    // 调用者地址（合约账户、外部账户）
	Origin  common.Address    // 最初调用者（外部账户），如果不涉及合约调用合约，那么 Caller == Origin
	Value   *big.Int          // 调用合约时的转账金额
}

// 合约调用栈
type contextStack struct {
	frames []frame
}

func (t *contextStack) Push(f frame) {
	t.frames = append(t.frames, f)
}

func (t *contextStack) Pop() frame {
	if !t.IsEmpty() {
		top := t.frames[len(t.frames)-1]
		t.frames = t.frames[:len(t.frames)-1]
		return top
	}
	return frame{}
}

func (t *contextStack) Top() frame {
	if !t.IsEmpty() {
		return t.frames[len(t.frames)-1]
	}
	return frame{}
}

func (t *contextStack) IsEmpty() bool {
	return len(t.frames) == 0
}

func (t *contextStack) Depth() int {
	return len(t.frames)
}

// 一笔交易的执行过程，所有调用帧共享
type execution struct {
	stack    contextStack
	gas      *GasMeter
	logs     []meta.Log
	time     int64                         // 区块时间
	deployed map[common.Address]Contract // 本交易中新部署的合约，成功后才注册
	err      error                         // 第一个gas错误，之后的存储读写全部失效
}

func newExecution(gasLimit uint64) *execution {
	return &execution{
		gas:      NewGasMeter(gasLimit),
		time:     time.Now().Unix(),
		deployed: map[common.Address]Contract{},
	}
}

/*
 * Context 是区块链提供给合约的接口，每个调用帧一个
 * 存储读写不返回错误：gas 耗尽后记录在 Err() 中，运行时在方法返回后检查
 */
type Context struct {
	rt    *Runtime
	exec  *execution
	frame frame
}

// 返回调用者地址（合约账户、外部账户）
func (c *Context) Caller() common.Address {
	return c.frame.Caller
}

// 返回交易发起者的地址。这是一个不随着调用深度变化的值
// 例：账户alice调用了A合约，A合约调用了B合约，Origin()得到的都是alice的账户地址。
func (c *Context) Origin() common.Address {
	return c.frame.Origin
}

// 返回调用合约时转入了多少资产
func (c *Context) Value() *big.Int {
	return new(big.Int).Set(c.frame.Value)
}

// 返回当前合约的地址
func (c *Context) Self() common.Address {
	return c.frame.Address
}

// 返回合约的名称
func (c *Context) Name() string {
	return c.frame.Name
}

func (c *Context) Method() string {
	return c.frame.Method
}

// 返回当前合约拥有多少资产
func (c *Context) Balance() *big.Int {
	return c.rt.state.GetBalance(c.frame.Address)
}

// 根据地址获取对应账户的余额
func (c *Context) BalanceOf(address common.Address) *big.Int {
	return c.rt.state.GetBalance(address)
}

// 当前区块时间（秒）
func (c *Context) Timestamp() *big.Int {
	return big.NewInt(c.exec.time)
}

func (c *Context) Err() error {
	return c.exec.err
}

func (c *Context) GasUsed() uint64 {
	return c.exec.gas.Used()
}

func (c *Context) use(amount uint64, op string) bool {
	if c.exec.err != nil {
		return false
	}
	if err := c.exec.gas.Consume(amount, op); err != nil {
		c.exec.err = err
		return false
	}
	return true
}

// 读取当前合约的存储槽
func (c *Context) SLoad(slot common.Hash) common.Hash {
	if !c.use(GasSLoad, "SLOAD") {
		return common.Hash{}
	}
	return c.rt.state.GetState(c.frame.Address, slot)
}

// 写入当前合约的存储槽
func (c *Context) SStore(slot, value common.Hash) {
	cost := GasSStoreReset
	if value != (common.Hash{}) && c.rt.state.GetState(c.frame.Address, slot) == (common.Hash{}) {
		cost = GasSStoreSet
	}
	if !c.use(cost, "SSTORE") {
		return
	}
	c.rt.state.SetState(c.frame.Address, slot, value)
}

// 把 words 个字复制到内存
func (c *Context) MemoryCopy(words int) {
	if words <= 0 {
		return
	}
	c.use(GasMemoryWord*uint64(words), "MCOPY")
}

// 记录合约事件
func (c *Context) Emit(name string, args map[string]string) {
	if !c.use(GasLog, "LOG") {
		return
	}
	c.exec.logs = append(c.exec.logs, meta.Log{
		Address: c.frame.Address,
		Name:    name,
		Args:    args,
	})
}

// 当前合约向 to 账户转账；to 是合约时执行它的 receive/fallback
func (c *Context) Transfer(to common.Address, amount *big.Int) error {
	if c.exec.err != nil {
		return c.exec.err
	}
	cost := GasCall
	if amount.Sign() > 0 {
		cost += GasCallValue
	}
	if !c.use(cost, "CALL") {
		return c.exec.err
	}
	if !c.rt.state.IsContractAccount(to) {
		return c.rt.state.Transfer(c.frame.Address, to, amount)
	}
	_, err := c.rt.call(c.exec, frame{
		Address: to,
		Caller:  c.frame.Address,
		Origin:  c.frame.Origin,
		Value:   new(big.Int).Set(amount),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", account.ErrRecipientRejected, to.Hex(), err)
	}
	return nil
}

// 调用其他合约的方法（不转账）
func (c *Context) Call(to common.Address, method string, args map[string]string) (interface{}, error) {
	if c.exec.err != nil {
		return nil, c.exec.err
	}
	if !c.use(GasCall, "CALL") {
		return nil, c.exec.err
	}
	return c.rt.call(c.exec, frame{
		Address: to,
		Method:  method,
		Args:    args,
		Caller:  c.frame.Address,
		Origin:  c.frame.Origin,
		Value:   new(big.Int),
	})
}

// 由当前合约部署新合约，返回新合约地址
func (c *Context) Create(name string, args map[string]string, value *big.Int) (common.Address, error) {
	if c.exec.err != nil {
		return common.Address{}, c.exec.err
	}
	if value == nil {
		value = new(big.Int)
	}
	nonce := c.rt.state.GetNonce(c.frame.Address)
	c.rt.state.IncNonce(c.frame.Address)
	return c.rt.create(c.exec, c.frame.Address, c.frame.Origin, nonce, name, args, value)
}

package fundme

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
)

func Factory() contract.Option {
	return contract.WithFactory(Name, New)
}

// Client 对 Runtime 上一个 FundMe 实例的类型化封装
type Client struct {
	rt      *contract.Runtime
	Address common.Address
}

func NewClient(rt *contract.Runtime, address common.Address) *Client {
	return &Client{rt: rt, Address: address}
}

// 由 from 部署 FundMe
func Deploy(rt *contract.Runtime, from, priceFeed common.Address) (*Client, meta.Receipt, error) {
	r, err := rt.Deploy(from, Name, map[string]string{"priceFeed": priceFeed.Hex()}, nil)
	if err != nil {
		return nil, r, err
	}
	return NewClient(rt, r.ContractAddress), r, nil
}

func (c *Client) Fund(from common.Address, value *big.Int) (meta.Receipt, error) {
	return c.rt.Invoke(from, c.Address, "fund", nil, value)
}

func (c *Client) Withdraw(from common.Address) (meta.Receipt, error) {
	return c.rt.Invoke(from, c.Address, "withdraw", nil, nil)
}

func (c *Client) CheaperWithdraw(from common.Address) (meta.Receipt, error) {
	return c.rt.Invoke(from, c.Address, "cheaperWithdraw", nil, nil)
}

func (c *Client) GetFunder(index uint64) (common.Address, error) {
	v, err := c.rt.Query(c.Address, "getFunder", map[string]string{"index": strconv.FormatUint(index, 10)})
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(v)
}

func (c *Client) GetAddressToAmountFunded(funder common.Address) (*big.Int, error) {
	v, err := c.rt.Query(c.Address, "getAddressToAmountFunded", map[string]string{"address": funder.Hex()})
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getAddressToAmountFunded returned %T", v)
	}
	return n, nil
}

func (c *Client) GetFundersCount() (uint64, error) {
	v, err := c.rt.Query(c.Address, "getFundersCount", nil)
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint64)
	if !ok {
		return 0, fmt.Errorf("getFundersCount returned %T", v)
	}
	return n, nil
}

func (c *Client) GetPriceFeed() (common.Address, error) {
	v, err := c.rt.Query(c.Address, "getPriceFeed", nil)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(v)
}

func (c *Client) GetOwner() (common.Address, error) {
	v, err := c.rt.Query(c.Address, "getOwner", nil)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(v)
}

// 合约当前持有的余额
func (c *Client) Balance() *big.Int {
	return c.rt.Balance(c.Address)
}

func asAddress(v interface{}) (common.Address, error) {
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("expected address, got %T", v)
	}
	return a, nil
}

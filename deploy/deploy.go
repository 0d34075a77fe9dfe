package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/contract"
	"github.com/fundme/contract/fundme"
	"github.com/fundme/contract/system"
	"github.com/fundme/levelDB"
	"github.com/fundme/meta"
)

// 单次源码验证的超时
const verifyTimeout = time.Minute

type Options struct {
	Network            string
	ChainId            int64
	BlockConfirmations int
	Accounts           NamedAccounts
	// 为空时不做源码验证
	Verifier Verifier
}

// 依次执行部署脚本，已部署的合约直接复用
type Deployer struct {
	rt          *contract.Runtime
	deployments *Deployments
	opts        Options
	// 后台验证任务，测试中用于等待
	verifyDone chan error
}

func NewDeployer(rt *contract.Runtime, db *levelDB.Store, opts Options) *Deployer {
	if opts.BlockConfirmations <= 0 {
		opts.BlockConfirmations = 1
	}
	return &Deployer{rt: rt, deployments: NewDeployments(db), opts: opts}
}

func (d *Deployer) Deployments() *Deployments {
	return d.deployments
}

// 部署全部合约，返回 FundMe
func (d *Deployer) Run(ctx context.Context) (*fundme.Client, error) {
	if err := d.DeployMocks(); err != nil {
		return nil, err
	}
	return d.DeployFundMe(ctx)
}

// 00-deploy-mocks
func (d *Deployer) DeployMocks() error {
	if !IsDevelopmentChain(d.opts.Network) {
		return nil
	}
	log.Info("Local network detected! Deploying mocks...")
	_, err := d.deploy(system.MockV3AggregatorName, map[string]string{
		"decimals":      Decimals,
		"initialAnswer": InitialAnswer,
	})
	if err != nil {
		return err
	}
	log.Info("Mocks deployed!")
	log.Info("-----------------------------")
	return nil
}

// 01-deploy-fund-me
func (d *Deployer) DeployFundMe(ctx context.Context) (*fundme.Client, error) {
	feed, err := d.priceFeed()
	if err != nil {
		return nil, err
	}
	dep, err := d.deploy(fundme.Name, map[string]string{"priceFeed": feed.Hex()})
	if err != nil {
		return nil, err
	}
	if !IsDevelopmentChain(d.opts.Network) && d.opts.Verifier != nil {
		d.verifyDone = make(chan error, 1)
		go func() {
			vctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
			defer cancel()
			err := d.opts.Verifier.Verify(vctx, dep.Address, fundme.Name, []common.Address{feed})
			if err != nil {
				log.Warningf("verify %s failed: %s", fundme.Name, err)
			}
			d.verifyDone <- err
		}()
	}
	log.Info("-----------------------------")
	return fundme.NewClient(d.rt, dep.Address), nil
}

// 开发网络使用 mock 地址，外部网络在配置的喂价地址上预置 PriceFeedProxy
func (d *Deployer) priceFeed() (common.Address, error) {
	if IsDevelopmentChain(d.opts.Network) {
		mock, err := d.deployments.Get(system.MockV3AggregatorName)
		if err != nil {
			return common.Address{}, err
		}
		return mock.Address, nil
	}
	info, ok := NetworkConfig[d.opts.ChainId]
	if !ok {
		return common.Address{}, fmt.Errorf("no price feed configured for chain %d", d.opts.ChainId)
	}
	if _, ok := d.rt.ContractAt(info.EthUsdPriceFeed); !ok {
		if err := d.rt.Predeploy(info.EthUsdPriceFeed, system.PriceFeedProxyName, nil); err != nil {
			return common.Address{}, err
		}
		log.Infof("price feed proxy registered at %s", info.EthUsdPriceFeed.Hex())
	}
	return info.EthUsdPriceFeed, nil
}

func (d *Deployer) deploy(name string, args map[string]string) (Deployment, error) {
	if dep, err := d.deployments.Get(name); err == nil {
		if _, ok := d.rt.ContractAt(dep.Address); ok {
			log.Infof("reusing %q at %s", name, dep.Address.Hex())
			return dep, nil
		}
	} else if !errors.Is(err, ErrDeploymentNotFound) {
		return Deployment{}, err
	}

	r, err := d.rt.Deploy(d.opts.Accounts.Deployer, name, args, nil)
	if err != nil {
		return Deployment{}, fmt.Errorf("deploy %s: %w", name, err)
	}
	d.waitConfirmations(r)
	dep := Deployment{
		Name:        name,
		Address:     r.ContractAddress,
		Network:     d.opts.Network,
		TxId:        r.TxId,
		BlockHeight: r.BlockHeight,
		Args:        args,
	}
	if err := d.deployments.Save(dep); err != nil {
		return Deployment{}, err
	}
	log.Infof("deployed %q (tx: %s) at %s with %d gas", name, r.TxId, dep.Address.Hex(), r.GasUsed)
	return dep, nil
}

// 本地每笔交易单独出块，交易所在区块即已确认；这里只检查区块确实落盘
func (d *Deployer) waitConfirmations(r meta.Receipt) {
	if _, err := d.rt.Block(r.BlockHeight); err != nil {
		log.Warningf("block %d of tx %s not found: %s", r.BlockHeight, r.TxId, err)
		return
	}
	log.Debugf("tx %s confirmed (%d confirmations required)", r.TxId, d.opts.BlockConfirmations)
}

package deploy

import (
	"context"
	"encoding/hex"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fundme/commoncon"
	"github.com/fundme/config"
	"github.com/fundme/contract"
	"github.com/fundme/contract/fundme"
	"github.com/fundme/contract/system"
	"github.com/fundme/levelDB"
	"github.com/fundme/metrics"
	"github.com/fundme/oracle/mockserver"
	"github.com/fundme/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T, db *levelDB.Store, opts []contract.Option) *contract.Runtime {
	opts = append(opts, contract.WithMetrics(metrics.New(prometheus.NewRegistry())))
	rt, err := contract.NewRuntime(db, opts...)
	require.NoError(t, err)
	return rt
}

func TestDevAccounts(t *testing.T) {
	named, alloc, err := Accounts("hardhat", "")
	require.NoError(t, err)
	assert.Len(t, named.All, commoncon.DevAccountCount)
	assert.Len(t, alloc, commoncon.DevAccountCount)
	assert.NotEqual(t, named.Deployer, named.User)
	assert.Equal(t, util.Ether(commoncon.DevAccountEther).String(), alloc[named.Deployer].String())

	again, _, err := Accounts("localhost", "")
	require.NoError(t, err)
	assert.Equal(t, named.All, again.All)
}

func TestLiveAccounts(t *testing.T) {
	_, _, err := Accounts("goerli", "")
	assert.ErrorIs(t, err, ErrNoPrivateKey)

	_, _, err = Accounts("goerli", "0xkey")
	assert.Error(t, err)

	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	named, alloc, err := Accounts("goerli", "0x"+hex.EncodeToString(crypto.FromECDSA(k)))
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(k.PublicKey)
	assert.Equal(t, addr, named.Deployer)
	assert.Equal(t, addr, named.User)
	assert.Equal(t, "0", alloc[addr].String())
}

func TestRunDevelopment(t *testing.T) {
	db := levelDB.OpenMem()
	cfg := &config.Config{Network: "hardhat"}
	opts, err := RuntimeOptions(context.Background(), cfg, nil)
	require.NoError(t, err)
	rt := newRuntime(t, db, opts)

	named, alloc, err := Accounts(cfg.Network, "")
	require.NoError(t, err)
	require.NoError(t, rt.Allocate(alloc))

	d := NewDeployer(rt, db, Options{Network: cfg.Network, ChainId: 31337, Accounts: named})
	fm, err := d.Run(context.Background())
	require.NoError(t, err)

	mock, err := d.Deployments().Get(system.MockV3AggregatorName)
	require.NoError(t, err)
	assert.Equal(t, Decimals, mock.Args["decimals"])
	feed, err := fm.GetPriceFeed()
	require.NoError(t, err)
	assert.Equal(t, mock.Address, feed)
	owner, err := fm.GetOwner()
	require.NoError(t, err)
	assert.Equal(t, named.Deployer, owner)

	_, err = fm.Fund(named.User, util.Ether(1))
	require.NoError(t, err)

	// 再次运行复用已有部署
	height := rt.Height()
	again, err := NewDeployer(rt, db, Options{Network: cfg.Network, Accounts: named}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fm.Address, again.Address)
	assert.Equal(t, height, rt.Height())

	all, err := d.Deployments().All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMissingDeployment(t *testing.T) {
	_, err := NewDeployments(levelDB.OpenMem()).Get(fundme.Name)
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}

type verifyRequest struct {
	address    string
	name       string
	args       string
	codeFormat string
	source     string
	compiler   string
}

func TestRunLiveNetwork(t *testing.T) {
	feedServer := httptest.NewServer(mockserver.NewServer(8, big.NewInt(200000000000)).Handler())
	defer feedServer.Close()

	requests := make(chan verifyRequest, 1)
	explorer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		requests <- verifyRequest{
			address:    r.PostForm.Get("contractaddress"),
			name:       r.PostForm.Get("contractname"),
			args:       r.PostForm.Get("constructorArguements"),
			codeFormat: r.PostForm.Get("codeformat"),
			source:     r.PostForm.Get("sourceCode"),
			compiler:   r.PostForm.Get("compilerversion"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":"guid"}`))
	}))
	defer explorer.Close()

	cfg := &config.Config{
		Network:  "goerli",
		Networks: map[string]config.NetworkConfig{"goerli": {ChainId: 5, BlockConfirmations: 6}},
		Oracle:   config.OracleConfig{Source: "http", HTTPURL: feedServer.URL, CacheTTL: time.Second},
	}
	db := levelDB.OpenMem()
	opts, err := RuntimeOptions(context.Background(), cfg, nil)
	require.NoError(t, err)
	rt := newRuntime(t, db, opts)

	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	named, alloc, err := Accounts(cfg.Network, hex.EncodeToString(crypto.FromECDSA(k)))
	require.NoError(t, err)
	funder := common.HexToAddress("0x2000000000000000000000000000000000000001")
	alloc[funder] = util.Ether(10)
	require.NoError(t, rt.Allocate(alloc))

	d := NewDeployer(rt, db, Options{
		Network:            cfg.Network,
		ChainId:            5,
		BlockConfirmations: 6,
		Accounts:           named,
		Verifier:           &EtherscanVerifier{
			URL:             explorer.URL,
			APIKey:          "key",
			SourceCode:      "contract FundMe {}",
			CompilerVersion: "v0.8.8+commit.dddeac2f",
		},
	})
	fm, err := d.Run(context.Background())
	require.NoError(t, err)

	feed, err := fm.GetPriceFeed()
	require.NoError(t, err)
	assert.Equal(t, NetworkConfig[5].EthUsdPriceFeed, feed)
	_, err = d.Deployments().Get(system.MockV3AggregatorName)
	assert.ErrorIs(t, err, ErrDeploymentNotFound)

	// 通过代理读取 mockserver 的报价
	_, err = fm.Fund(funder, util.Ether(1))
	require.NoError(t, err)
	amount, err := fm.GetAddressToAmountFunded(funder)
	require.NoError(t, err)
	assert.Equal(t, util.Ether(1).String(), amount.String())

	select {
	case req := <-requests:
		assert.Equal(t, fm.Address.Hex(), req.address)
		assert.Equal(t, fundme.Name, req.name)
		assert.True(t, strings.HasSuffix(req.args, strings.ToLower(feed.Hex()[2:])))
		assert.Len(t, req.args, 64)
		assert.Equal(t, "solidity-single-file", req.codeFormat)
		assert.Equal(t, "contract FundMe {}", req.source)
		assert.Equal(t, "v0.8.8+commit.dddeac2f", req.compiler)
	case <-time.After(3 * time.Second):
		t.Fatal("verification request not sent")
	}
	require.NoError(t, <-d.verifyDone)
}

func TestVerifyAlreadyVerified(t *testing.T) {
	explorer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Contract source code already verified"}`))
	}))
	defer explorer.Close()
	v := &EtherscanVerifier{URL: explorer.URL}
	assert.NoError(t, v.Verify(context.Background(), common.Address{1}, fundme.Name, nil))

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`))
	}))
	defer failing.Close()
	v.URL = failing.URL
	assert.Error(t, v.Verify(context.Background(), common.Address{1}, fundme.Name, nil))
}

func TestFeedSourceErrors(t *testing.T) {
	_, err := FeedSource(context.Background(), &config.Config{Oracle: config.OracleConfig{Source: "redis"}}, nil)
	assert.Error(t, err)

	_, err = FeedSource(context.Background(), &config.Config{Oracle: config.OracleConfig{Source: "ftp"}}, nil)
	assert.Error(t, err)

	_, err = FeedSource(context.Background(), &config.Config{Network: "nowhere"}, nil)
	assert.Error(t, err)
}

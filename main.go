package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/chain"
	"github.com/fundme/client"
	"github.com/fundme/config"
	"github.com/fundme/contract"
	"github.com/fundme/contract/fundme"
	"github.com/fundme/contract/system"
	"github.com/fundme/deploy"
	"github.com/fundme/event"
	"github.com/fundme/global"
	"github.com/fundme/levelDB"
	"github.com/fundme/meta"
	"github.com/fundme/oracle"
	"github.com/fundme/oracle/mockserver"
	"github.com/fundme/redis"
	"github.com/fundme/util"
	"github.com/joho/godotenv"
)

func main() {
	Start()
}

func Start() {
	network := flag.String("network", "", "Network name (hardhat, localhost, goerli, polygon)")
	root := flag.String("root", ".", "Project root directory")
	flag.Parse()

	global.RootDir = *root
	// .env 不存在时只使用环境变量
	if envPath := filepath.Join(*root, ".env"); util.FileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			log.Fatalf("load %s: %s", envPath, err)
		}
	}
	cfg, err := config.Load(filepath.Join(*root, "config"))
	if err != nil {
		log.Fatal(err)
	}
	if *network != "" {
		cfg.Network = *network
	}
	global.Network = cfg.Network
	setLogLevel(cfg.Log.Level)
	netCfg, ok := cfg.CurrentNetwork()
	if !ok {
		log.Fatalf("unknown network %s", cfg.Network)
	}
	log.Infof("network %s (chainId %d)", cfg.Network, netCfg.ChainId)

	ctx := context.Background()
	db := levelDB.InitDB(filepath.Join(*root, cfg.LevelDB.Path, cfg.Network))
	defer db.Close()

	var rdb *redis.Client
	hub := event.NewHub()
	sinks := event.MultiSink{hub}
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx); err != nil {
			log.Fatalf("redis %s: %s", cfg.Redis.Addr, err)
		}
		defer rdb.Close()
		sinks = append(sinks, event.NewRedisSink(rdb, cfg.Redis.EventKey))
	}

	opts, err := deploy.RuntimeOptions(ctx, cfg, rdb)
	if err != nil {
		log.Fatal(err)
	}
	rt, err := contract.NewRuntime(db, append(opts, contract.WithSink(sinks))...)
	if err != nil {
		log.Fatal(err)
	}

	named, alloc, err := deploy.Accounts(cfg.Network, cfg.PrivateKey)
	if err != nil {
		log.Fatal(err)
	}
	if err := rt.Allocate(alloc); err != nil {
		log.Fatal(err)
	}
	deployOpts := deploy.Options{
		Network:            cfg.Network,
		ChainId:            netCfg.ChainId,
		BlockConfirmations: netCfg.BlockConfirmations,
		Accounts:           named,
	}
	if cfg.Etherscan.APIKey != "" {
		v := &deploy.EtherscanVerifier{
			URL:             cfg.Etherscan.URL,
			APIKey:          cfg.Etherscan.APIKey,
			CompilerVersion: cfg.Etherscan.CompilerVersion,
			Optimize:        cfg.Etherscan.Optimize,
		}
		if cfg.Etherscan.SourceFile != "" {
			src, err := os.ReadFile(filepath.Join(*root, cfg.Etherscan.SourceFile))
			if err != nil {
				log.Fatalf("read verify source: %s", err)
			}
			v.SourceCode = string(src)
		}
		deployOpts.Verifier = v
	}
	fm, err := deploy.NewDeployer(rt, db, deployOpts).Run(ctx)
	if err != nil {
		log.Fatal(err)
	}

	if deploy.IsDevelopmentChain(cfg.Network) && cfg.MockServer.Addr != "" {
		answer, _ := util.ParseAmount(deploy.InitialAnswer)
		mock := mockserver.NewServer(mockDecimals(), answer)
		if rdb != nil {
			// 把模拟报价同步到 redis，供 oracle.source=redis 的节点读取
			feed := oracle.NewRedisFeed(rdb, cfg.Redis.PriceKey)
			mock.OnUpdate(func(decimals uint8, round meta.RoundData) {
				if err := feed.Publish(context.Background(), oracle.Report{Decimals: decimals, RoundData: round}); err != nil {
					log.Errorf("publish price to redis: %s", err)
				}
			})
		}
		go func() {
			if err := mock.ListenAndServe(cfg.MockServer.Addr); err != nil {
				log.Errorf("mock server: %s", err)
			}
		}()
	}

	server := client.NewServer(rt, fm, hub, client.Options{})
	go func() {
		if err := server.ListenRequest(cfg.Client.Addr); err != nil {
			log.Fatal(err)
		}
	}()

	// 退出时输出 gas 统计表
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	log.Info("shutting down")
	if cfg.GasReporter.Enabled {
		writeGasReport(rt, fm, cfg)
	}
}

func writeGasReport(rt *contract.Runtime, fm *fundme.Client, cfg *config.Config) {
	receipts, err := rt.Receipts()
	if err != nil {
		log.Errorf("gas report: %s", err)
		return
	}
	f, err := os.Create(filepath.Join(global.RootDir, cfg.GasReporter.OutputFile))
	if err != nil {
		log.Errorf("gas report: %s", err)
		return
	}
	defer f.Close()
	err = chain.WriteGasReport(f, chain.BuildGasReport(receipts), chain.ReportOptions{
		GasPriceGwei: cfg.GasReporter.GasPrice,
		Currency:     cfg.GasReporter.Currency,
		NativePrice:  nativePrice(rt, fm),
	})
	if err != nil {
		log.Errorf("gas report: %s", err)
	}
}

// 用 FundMe 当前使用的喂价折算 gas 费用
func nativePrice(rt *contract.Runtime, fm *fundme.Client) *big.Int {
	feed, err := fm.GetPriceFeed()
	if err != nil {
		return nil
	}
	price, err := oracle.GetPrice(context.Background(), system.NewQueryFeed(rt, feed))
	if err != nil {
		log.Warningf("gas report without price: %s", err)
		return nil
	}
	return price
}

func mockDecimals() uint8 {
	d, _ := strconv.ParseUint(deploy.Decimals, 10, 8)
	return uint8(d)
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		log.Level = log.LevelDebug
	case "warning", "warn":
		log.Level = log.LevelWarning
	case "error":
		log.Level = log.LevelError
	default:
		log.Level = log.LevelInfo
	}
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fundme/commoncon"
	viper2 "github.com/spf13/viper"
)

type NetworkConfig struct {
	ChainId            int64  `mapstructure:"chainId"`
	URL                string `mapstructure:"url"`
	BlockConfirmations int    `mapstructure:"blockConfirmations"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PriceKey string `mapstructure:"priceKey"`
	EventKey string `mapstructure:"eventKey"`
	Enabled  bool   `mapstructure:"enabled"`
}

type OracleConfig struct {
	Source   string        `mapstructure:"source"` // chainlink | redis | http
	HTTPURL  string        `mapstructure:"httpURL"`
	CacheTTL time.Duration `mapstructure:"cacheTTL"`
}

type GasReporterConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	OutputFile string `mapstructure:"outputFile"`
	Currency   string `mapstructure:"currency"`
	GasPrice   int64  `mapstructure:"gasPrice"` // gwei
}

type EtherscanConfig struct {
	APIKey          string `mapstructure:"apiKey"`
	URL             string `mapstructure:"url"`
	SourceFile      string `mapstructure:"sourceFile"` // 相对根目录
	CompilerVersion string `mapstructure:"compilerVersion"`
	Optimize        bool   `mapstructure:"optimize"`
}

type Config struct {
	Network     string                   `mapstructure:"network"`
	Networks    map[string]NetworkConfig `mapstructure:"networks"`
	PrivateKey  string                   `mapstructure:"privateKey"`
	LevelDB     struct{ Path string }    `mapstructure:"levelDB"`
	Redis       RedisConfig              `mapstructure:"redis"`
	Client      struct{ Addr string }    `mapstructure:"client"`
	MockServer  struct{ Addr string }    `mapstructure:"mockServer"`
	Oracle      OracleConfig             `mapstructure:"oracle"`
	GasReporter GasReporterConfig        `mapstructure:"gasReporter"`
	Etherscan   EtherscanConfig          `mapstructure:"etherscan"`
	Log         struct{ Level string }   `mapstructure:"log"`
}

func newViper(dir string) *viper2.Viper {
	viper := viper2.New()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(dir)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// .env 中的变量
	_ = viper.BindEnv("networks.goerli.url", "GOERLI_RPC_URL")
	_ = viper.BindEnv("privateKey", "PRIVATE_KEY")
	_ = viper.BindEnv("etherscan.apiKey", "ETHERSCAN_API_KEY")

	viper.SetDefault("network", "hardhat")
	viper.SetDefault("levelDB.path", "data/leveldb")
	viper.SetDefault("redis.priceKey", commoncon.PriceKey)
	viper.SetDefault("redis.eventKey", commoncon.EventKey)
	viper.SetDefault("client.addr", ":8081")
	viper.SetDefault("oracle.source", "chainlink")
	viper.SetDefault("oracle.cacheTTL", "30s")
	viper.SetDefault("gasReporter.outputFile", "gas-reporter.txt")
	viper.SetDefault("gasReporter.currency", "USD")
	viper.SetDefault("etherscan.url", "https://api.etherscan.io/api")
	viper.SetDefault("log.level", "info")
	return viper
}

// 读取 dir 下的 config.yaml
func Load(dir string) (*Config, error) {
	viper := newViper(dir)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config in %s: %w", dir, err)
	}
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// 当前网络的配置
func (c *Config) CurrentNetwork() (NetworkConfig, bool) {
	n, ok := c.Networks[c.Network]
	return n, ok
}

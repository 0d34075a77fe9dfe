package commoncon

// levelDB key 前缀
const (
	AccountKeyPrefix    = "account-"    // key: AccountKeyPrefix+地址 - val: meta.Account
	BlockKeyPrefix      = "block-"      // key: BlockKeyPrefix+高度 - val: meta.Block
	ReceiptKeyPrefix    = "receipt-"    // key: ReceiptKeyPrefix+交易id - val: meta.Receipt
	DeploymentKeyPrefix = "deployment-" // key: DeploymentKeyPrefix+合约名 - val: 部署记录
	LatestHeightKey     = "latestHeight"
)

// redis key
const (
	PriceKey = "price:eth-usd" // 链下喂价（RoundData json）
	EventKey = "events"        // 合约事件列表
)

// 默认交易gas上限
const DefaultGasLimit = 30000000

// 开发网络上每个预置账户的初始余额（单位：ether）
const DevAccountEther = 10000

// 开发网络预置账户数
const DevAccountCount = 20

// 一个原生代币的最小单位数（1 ether = 1e18 wei）
const NativeDecimals = 18

package deploy

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudflare/cfssl/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type Verifier interface {
	Verify(ctx context.Context, address common.Address, contractName string, args []common.Address) error
}

// 调用区块浏览器的源码验证接口
// 浏览器要求提交源码和编译器版本，SourceCode 为空时请求会被拒绝，Verify 返回浏览器的错误信息
type EtherscanVerifier struct {
	URL             string
	APIKey          string
	SourceCode      string // 单文件 solidity 源码
	CompilerVersion string // 如 v0.8.8+commit.dddeac2f
	Optimize        bool
	Client          *http.Client
}

type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// 构造参数按 abi 编码（FundMe 只有 address 参数）
func encodeArgs(args []common.Address) (string, error) {
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		return "", err
	}
	var arguments abi.Arguments
	values := make([]interface{}, len(args))
	for i, a := range args {
		arguments = append(arguments, abi.Argument{Type: addressTy})
		values[i] = a
	}
	packed, err := arguments.Pack(values...)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(packed), nil
}

func (v *EtherscanVerifier) Verify(ctx context.Context, address common.Address, contractName string, args []common.Address) error {
	log.Info("Verifying contract...")
	encoded, err := encodeArgs(args)
	if err != nil {
		return err
	}
	form := url.Values{
		"apikey":                {v.APIKey},
		"module":                {"contract"},
		"action":                {"verifysourcecode"},
		"contractaddress":       {address.Hex()},
		"contractname":          {contractName},
		"constructorArguements": {encoded},
	}
	if v.SourceCode != "" {
		optimize := "0"
		if v.Optimize {
			optimize = "1"
		}
		form.Set("codeformat", "solidity-single-file")
		form.Set("sourceCode", v.SourceCode)
		form.Set("compilerversion", v.CompilerVersion)
		form.Set("optimizationUsed", optimize)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var res etherscanResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("decode verify response: %w", err)
	}
	if res.Status == "1" {
		return nil
	}
	if strings.Contains(strings.ToLower(res.Result), "already verified") {
		log.Info("Already Verified!")
		return nil
	}
	return fmt.Errorf("verify %s: %s %s", address.Hex(), res.Message, res.Result)
}

package meta

type HttpResponse struct {
	Error string      `json:"error"` // 如果不为空代表错误信息
	Data  interface{} `json:"data"`
	Code  int         `json:"code"` // vue-element-admin的前端校验码，必须为20000
}

// 用户提交交易的参数
type PostTran struct {
	From      string            `json:"from"`
	To        string            `json:"to"`     // 仅 /postTran 使用
	Method    string            `json:"method"` // 为空时是普通转账
	Args      map[string]string `json:"args"`
	Value     string            `json:"value"` // 十进制字符串，最小单位
	GasLimit  uint64            `json:"gas_limit"`
	Nonce     uint64            `json:"nonce"`     // 必须等于发起账户当前 nonce
	Signature string            `json:"signature"` // 发起账户对其余字段的签名
}

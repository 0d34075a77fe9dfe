package util

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fundme/meta"
)

var ErrBadSignature = errors.New("invalid transaction signature")

// 交易签名摘要：Signature 置空后的 json 按 EIP-191 personal_sign 格式计算
func TranSigningHash(pt meta.PostTran) []byte {
	pt.Signature = ""
	jt, _ := json.Marshal(pt)
	return accounts.TextHash(jt)
}

// 用私钥签名，同时填入 From
func SignTran(pt *meta.PostTran, key *ecdsa.PrivateKey) error {
	pt.From = crypto.PubkeyToAddress(key.PublicKey).Hex()
	sig, err := crypto.Sign(TranSigningHash(*pt), key)
	if err != nil {
		return err
	}
	pt.Signature = hexutil.Encode(sig)
	return nil
}

// 从签名恢复发起地址
func RecoverTranSender(pt meta.PostTran) (common.Address, error) {
	sig, err := hexutil.Decode(pt.Signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrBadSignature
	}
	// 钱包签名的 v 为 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(TranSigningHash(pt), sig)
	if err != nil {
		return common.Address{}, ErrBadSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

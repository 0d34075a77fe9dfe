package util

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/meta"
)

//计算hash摘要
func CalculateHash(msg []byte) ([]byte, error) {
	h := sha256.New()
	if _, err := h.Write(msg); err != nil {
		log.Info(err)
		return nil, err
	}
	return h.Sum(nil), nil
}

//计算区块hash（Hash字段置空后计算）
func CalculateBlockHash(b meta.Block) []byte {
	b.Hash = nil
	jb, _ := json.Marshal(b)
	hashed, _ := CalculateHash(jb)
	return hashed
}

//计算交易hash
func CalculateTxHash(tx meta.Transaction) []byte {
	tx.Hash = nil
	jt, _ := json.Marshal(tx)
	hashed, _ := CalculateHash(jt)
	return hashed
}

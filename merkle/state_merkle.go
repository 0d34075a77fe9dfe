package merkle

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fundme/meta"
)

/*
	账户状态的二叉 merkle 树
	叶子为 keccak256(json(account))，按地址升序排列；奇数个节点时最后一个节点直接上移
*/

// 空状态的根
var EmptyRoot = common.Hash{}

func hashPair(a, b common.Hash) common.Hash {
	return crypto.Keccak256Hash(a[:], b[:])
}

// 账户叶子哈希，调用方保证按地址排序
func AccountLeaves(accounts []meta.Account) ([]common.Hash, error) {
	leaves := make([]common.Hash, 0, len(accounts))
	for _, acc := range accounts {
		data, err := json.Marshal(acc)
		if err != nil {
			return nil, fmt.Errorf("marshal account %s: %w", acc.Address.Hex(), err)
		}
		leaves = append(leaves, crypto.Keccak256Hash(data))
	}
	return leaves, nil
}

func nextLevel(level []common.Hash) []common.Hash {
	next := make([]common.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 == len(level) {
			next = append(next, level[i])
			continue
		}
		next = append(next, hashPair(level[i], level[i+1]))
	}
	return next
}

func Root(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return EmptyRoot
	}
	level := leaves
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// 第 index 个叶子的证明路径，Left 表示兄弟节点在左侧
type ProofNode struct {
	Hash common.Hash `json:"hash"`
	Left bool        `json:"left"`
}

func Proof(leaves []common.Hash, index int) ([]ProofNode, error) {
	if index < 0 || index >= len(leaves) {
		return nil, fmt.Errorf("leaf index %d out of range (%d leaves)", index, len(leaves))
	}
	var proof []ProofNode
	level := leaves
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, ProofNode{Hash: level[sibling], Left: sibling < index})
		}
		level = nextLevel(level)
		index /= 2
	}
	return proof, nil
}

// 存在性验证
func Verify(root, leaf common.Hash, proof []ProofNode) bool {
	h := leaf
	for _, p := range proof {
		if p.Left {
			h = hashPair(p.Hash, h)
		} else {
			h = hashPair(h, p.Hash)
		}
	}
	return h == root
}

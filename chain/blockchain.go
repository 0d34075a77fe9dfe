package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/commoncon"
	"github.com/fundme/levelDB"
	"github.com/fundme/meta"
	"github.com/fundme/util"
	"github.com/syndtr/goleveldb/leveldb"
)

// Chain 单节点自动出块：每笔交易单独打包成一个区块
type Chain struct {
	db       *levelDB.Store
	height   int
	lastHash []byte
}

// 打开链，不存在时写入创世区块
func NewChain(db *levelDB.Store) (*Chain, error) {
	c := &Chain{db: db}
	data, err := db.Get(commoncon.LatestHeightKey)
	if errors.Is(err, levelDB.ErrNotFound) {
		gb := GenerateGenesisBlock()
		batch := levelDB.NewBatch()
		if err := c.StoreBlock(batch, gb); err != nil {
			return nil, err
		}
		if err := db.Write(batch); err != nil {
			return nil, fmt.Errorf("store genesis block: %w", err)
		}
		c.Advance(gb)
		log.Info("创世区块已生成")
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	height, err := strconv.Atoi(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse latest height %q: %w", data, err)
	}
	b, err := c.GetBlock(height)
	if err != nil {
		return nil, err
	}
	c.Advance(b)
	log.Infof("loaded chain at height %d", height)
	return c, nil
}

//生成创世区块
func GenerateGenesisBlock() meta.Block {
	genesisBlock := meta.Block{
		Timestamp: time.Now().String(),
	}
	genesisBlock.Hash = util.CalculateBlockHash(genesisBlock)
	return genesisBlock
}

//生成新区块（不修改链高度，落盘成功后再 Advance）
func (c *Chain) CreateNewBlock(txs []meta.Transaction, receipts []meta.Receipt, stateRoot common.Hash) meta.Block {
	newBlock := meta.Block{
		Height:    c.height + 1,
		StateRoot: stateRoot,
		Timestamp: time.Now().String(),
		PrevHash:  c.lastHash,
		TX:        txs,
		Receipts:  receipts,
	}
	for i := range newBlock.Receipts {
		newBlock.Receipts[i].BlockHeight = newBlock.Height
	}
	newBlock.Hash = util.CalculateBlockHash(newBlock)
	return newBlock
}

// 区块、回执、最新高度写入batch
func (c *Chain) StoreBlock(batch *leveldb.Batch, b meta.Block) error {
	bb, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal block %d: %w", b.Height, err)
	}
	batch.Put([]byte(blockKey(b.Height)), bb)
	for _, r := range b.Receipts {
		rb, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal receipt %s: %w", r.TxId, err)
		}
		batch.Put([]byte(commoncon.ReceiptKeyPrefix+r.TxId), rb)
	}
	batch.Put([]byte(commoncon.LatestHeightKey), []byte(strconv.Itoa(b.Height)))
	return nil
}

// batch写入成功后推进链头
func (c *Chain) Advance(b meta.Block) {
	c.height = b.Height
	c.lastHash = b.Hash
}

func (c *Chain) Height() int {
	return c.height
}

func (c *Chain) GetBlock(height int) (meta.Block, error) {
	var b meta.Block
	data, err := c.db.Get(blockKey(height))
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("unmarshal block %d: %w", height, err)
	}
	return b, nil
}

func (c *Chain) GetReceipt(txId string) (meta.Receipt, error) {
	var r meta.Receipt
	data, err := c.db.Get(commoncon.ReceiptKeyPrefix + txId)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("unmarshal receipt %s: %w", txId, err)
	}
	return r, nil
}

// 按区块顺序返回所有回执
func (c *Chain) Receipts() ([]meta.Receipt, error) {
	var receipts []meta.Receipt
	for h := 1; h <= c.height; h++ {
		b, err := c.GetBlock(h)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, b.Receipts...)
	}
	return receipts, nil
}

func blockKey(height int) string {
	return commoncon.BlockKeyPrefix + strconv.Itoa(height)
}

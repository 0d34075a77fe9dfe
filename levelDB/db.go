package levelDB

import (
	"errors"
	"fmt"

	"github.com/cloudflare/cfssl/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("levelDB: not found")

// Store 封装一个leveldb实例
type Store struct {
	db *leveldb.DB
}

// 打开磁盘上的数据库
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// 内存数据库，测试用
func OpenMem() *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		// 内存存储不会打开失败
		panic(err)
	}
	return &Store{db: db}
}

func (s *Store) Get(key string) ([]byte, error) {
	data, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db get %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Has(key string) bool {
	ok, err := s.db.Has([]byte(key), nil)
	if err != nil {
		log.Error("db has err:", err)
		return false
	}
	return ok
}

func (s *Store) Put(key string, value []byte) error {
	return s.db.Put([]byte(key), value, nil)
}

func (s *Store) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

// 按前缀遍历，fn返回false时停止
func (s *Store) Iterate(prefix string, fn func(key string, value []byte) bool) error {
	iter := s.db.NewIterator(ldbutil.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		// iterator 的 key/value 在 Next 后会被复用，需要拷贝
		value := append([]byte(nil), iter.Value()...)
		if !fn(string(iter.Key()), value) {
			break
		}
	}
	return iter.Error()
}

func NewBatch() *leveldb.Batch {
	return new(leveldb.Batch)
}

// 原子写入一个batch
func (s *Store) Write(batch *leveldb.Batch) error {
	return s.db.Write(batch, nil)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// 节点启动时打开数据库，失败直接退出
func InitDB(path string) *Store {
	db, err := Open(path)
	if err != nil {
		log.Fatal("db init err:", err)
	}
	return db
}

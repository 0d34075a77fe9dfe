package levelDB

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetPut(t *testing.T) {
	s := OpenMem()
	defer s.Close()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put("k", []byte("v")))
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	assert.True(t, s.Has("k"))

	require.NoError(t, s.Delete("k"))
	assert.False(t, s.Has("k"))
}

func TestBatchIsAtomic(t *testing.T) {
	s := OpenMem()
	defer s.Close()

	b := NewBatch()
	b.Put([]byte("account-1"), []byte("a"))
	b.Put([]byte("account-2"), []byte("b"))
	b.Put([]byte("block-1"), []byte("c"))
	assert.False(t, s.Has("account-1"))
	require.NoError(t, s.Write(b))

	var keys []string
	require.NoError(t, s.Iterate("account-", func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Equal(t, []string{"account-1", "account-2"}, keys)
}

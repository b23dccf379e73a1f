package msi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/internal/cfbtest"
)

func poolHeader(header uint32, entries ...uint32) []byte {
	buf := cfbtest.PutCell(nil, 4, header)
	for _, e := range entries {
		buf = cfbtest.PutCell(buf, 2, e)
	}
	return buf
}

func TestStringPool(t *testing.T) {
	pool := poolHeader(1252, 3, 1, 2, 2)
	sp, err := ParseStringPool(pool, []byte("abcde"), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, sp.Len())
	assert.Equal(t, 2, sp.RefSize())
	assert.Equal(t, 1252, sp.Codepage())

	s, ok := sp.Get(0)
	assert.True(t, ok)
	assert.Equal(t, "", s)
	s, ok = sp.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "abc", s)
	s, ok = sp.Get(2)
	assert.True(t, ok)
	assert.Equal(t, "de", s)
	_, ok = sp.Get(3)
	assert.False(t, ok)

	assert.Equal(t, uint32(2), sp.RefCount(2))
	assert.Equal(t, uint32(0), sp.RefCount(9))
}

func TestStringPoolLongRefs(t *testing.T) {
	sp, err := ParseStringPool(poolHeader(0x80000000|1252, 1, 1), []byte("x"), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, sp.RefSize())
	assert.Equal(t, 1252, sp.Codepage())
}

func TestStringPoolLongEntry(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 0x10002)
	// 0 length with a refcount marks a long entry: the next pair holds
	// the low length word and the real refcount
	pool := poolHeader(1252, 0, 1, 2, 5, 1, 1)
	sp, err := ParseStringPool(pool, append(long, 'y'), 0)
	require.NoError(t, err)

	require.Equal(t, 2, sp.Len())
	s, _ := sp.Get(1)
	assert.Equal(t, len(long), len(s))
	assert.Equal(t, uint32(5), sp.RefCount(1))
	s, _ = sp.Get(2)
	assert.Equal(t, "y", s)
}

func TestStringPoolEmptySlot(t *testing.T) {
	sp, err := ParseStringPool(poolHeader(1252, 0, 0, 1, 1), []byte("z"), 0)
	require.NoError(t, err)
	s, ok := sp.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "", s)
	s, _ = sp.Get(2)
	assert.Equal(t, "z", s)
}

func TestStringPoolMismatch(t *testing.T) {
	_, err := ParseStringPool(poolHeader(1252, 3, 1, 4, 1), []byte("abcde"), 0)
	assert.ErrorIs(t, err, msiparser.ErrStringPoolMismatch)

	_, err = ParseStringPool([]byte{1, 2}, nil, 0)
	assert.ErrorIs(t, err, msiparser.ErrStringPoolMismatch)

	_, err = ParseStringPool(poolHeader(1252, 0, 1), nil, 0)
	assert.ErrorIs(t, err, msiparser.ErrStringPoolMismatch)
}

func TestStringPoolCodepage(t *testing.T) {
	sp, err := ParseStringPool(poolHeader(1251, 1, 1), []byte{0xC0}, 0)
	require.NoError(t, err)
	s, _ := sp.Get(1)
	assert.Equal(t, "А", s)

	sp, err = ParseStringPool(poolHeader(0, 1, 1), []byte{0xC0}, 1251)
	require.NoError(t, err)
	assert.Equal(t, 1251, sp.Codepage())

	sp, err = ParseStringPool(poolHeader(0), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1252, sp.Codepage())
	assert.Equal(t, 0, sp.Len())
}

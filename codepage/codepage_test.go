package codepage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "windows-1252", Name(1252))
	assert.Equal(t, "Shift_JIS", Name(932))
	assert.Equal(t, "neutral", Name(0))
	assert.Equal(t, "cp4242", Name(4242))
	assert.True(t, Known(1251))
	assert.True(t, Known(0))
	assert.False(t, Known(4242))
}

func TestDecode(t *testing.T) {
	assert.Equal(t, "plain", Decode(1252, []byte("plain")))
	assert.Equal(t, "café", Decode(1252, []byte{'c', 'a', 'f', 0xE9}))
	assert.Equal(t, "€", Decode(1252, []byte{0x80}))
	assert.Equal(t, "Привет", Decode(1251, []byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2}))
	assert.Equal(t, "日本", Decode(932, []byte{0x93, 0xFA, 0x96, 0x7B}))
	assert.Equal(t, "héllo", Decode(UTF8, []byte("héllo")))
	assert.Equal(t, "AB", Decode(UTF16LE, []byte{'A', 0, 'B', 0}))
	assert.Equal(t, "", Decode(1252, nil))

	// neutral and unknown codepages fall back to windows-1252
	assert.Equal(t, "café", Decode(0, []byte{'c', 'a', 'f', 0xE9}))
	assert.Equal(t, "café", Decode(4242, []byte{'c', 'a', 'f', 0xE9}))
}

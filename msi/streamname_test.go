package msi

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestStreamNameRoundTrip(t *testing.T) {
	for _, isTable := range []bool{false, true} {
		for i := 0; i < len(alphabet); i++ {
			name := alphabet[i : i+1]
			got, table := DecodeName(EncodeName(name, isTable))
			assert.Equal(t, name, got)
			assert.Equal(t, isTable, table)

			for j := 0; j < len(alphabet); j++ {
				name := string([]byte{alphabet[i], alphabet[j]})
				enc := EncodeName(name, isTable)
				want := 1
				if isTable {
					want = 2
				}
				assert.Equal(t, want, utf8.RuneCountInString(enc), name)
				got, table := DecodeName(enc)
				assert.Equal(t, name, got)
				assert.Equal(t, isTable, table)
			}
		}
	}
}

func TestStreamNameKnown(t *testing.T) {
	assert.Equal(t, "䡀㼿䕷䑬㹪䒲䠯", EncodeName("_StringPool", true))
	assert.Equal(t, "䡀㽿䅤䈯䠶", EncodeName("_Tables", true))
	assert.Equal(t, "䡀㬿䏲䐸䖱", EncodeName("_Columns", true))

	for _, name := range []string{"Feature", "Binary.Logo", "CustomAction", "_Validation", "odd"} {
		got, table := DecodeName(EncodeName(name, true))
		assert.Equal(t, name, got)
		assert.True(t, table)
	}
}

func TestStreamNamePassThrough(t *testing.T) {
	enc := EncodeName("a-b c", false)
	assert.Contains(t, enc, "-")
	assert.Contains(t, enc, " ")
	got, table := DecodeName(enc)
	assert.Equal(t, "a-b c", got)
	assert.False(t, table)

	got, table = DecodeName("\x05SummaryInformation")
	assert.Equal(t, "\x05SummaryInformation", got)
	assert.False(t, table)
}

func TestValidStreamName(t *testing.T) {
	long := ""
	for len(long) < 62 {
		long += "ab"
	}
	assert.True(t, ValidStreamName(long, false))
	assert.False(t, ValidStreamName(long, true))
	assert.False(t, ValidStreamName(long+"c", false))
}

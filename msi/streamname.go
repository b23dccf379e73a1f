package msi

import (
	"strings"
	"unicode/utf16"
)

// Stream names of MSI tables and columns are compressed: pairs of
// identifier characters share one UTF-16 code unit.
const (
	// tableMarker prefixes the stream names of tables.
	tableMarker = 0x4840
	// pairBase is added to (second<<6)+first for two packed characters.
	pairBase = 0x3800
	// singleBase is added to a lone packed character.
	singleBase = 0x4800

	// MaxStreamNameLen is the longest stream name a compound file
	// directory entry can hold, in UTF-16 code units.
	MaxStreamNameLen = 31
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz._"

var charValue = func() (t [128]int8) {
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return
}()

func toBase64(r rune) (rune, bool) {
	if r < 0 || r >= 128 || charValue[r] < 0 {
		return 0, false
	}
	return rune(charValue[r]), true
}

// EncodeName compresses an identifier into a stream name. Characters
// outside the identifier alphabet are kept as they are.
func EncodeName(name string, isTable bool) string {
	var sb strings.Builder
	if isTable {
		sb.WriteRune(tableMarker)
	}
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		v1, ok := toBase64(runes[i])
		if !ok {
			sb.WriteRune(runes[i])
			continue
		}
		if i+1 < len(runes) {
			if v2, ok := toBase64(runes[i+1]); ok {
				sb.WriteRune(pairBase + (v2 << 6) + v1)
				i++
				continue
			}
		}
		sb.WriteRune(singleBase + v1)
	}
	return sb.String()
}

// DecodeName expands a stream name and reports whether it names a table.
func DecodeName(encoded string) (string, bool) {
	var sb strings.Builder
	isTable := false
	for i, r := range encoded {
		switch {
		case i == 0 && r == tableMarker:
			isTable = true
		case r >= pairBase && r < singleBase:
			v := r - pairBase
			sb.WriteByte(alphabet[v&0x3f])
			sb.WriteByte(alphabet[v>>6])
		case r >= singleBase && r < tableMarker:
			sb.WriteByte(alphabet[r-singleBase])
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String(), isTable
}

// ValidStreamName reports whether the encoded form of name fits into a
// directory entry.
func ValidStreamName(name string, isTable bool) bool {
	return len(utf16.Encode([]rune(EncodeName(name, isTable)))) <= MaxStreamNameLen
}

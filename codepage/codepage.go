// Package codepage maps Windows codepage identifiers to text decoders.
package codepage

import (
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Default is used when a package does not declare a codepage.
const Default = 1252

// Codepage ids with special handling.
const (
	Neutral = 0
	UTF16LE = 1200
	UTF16BE = 1201
	UTF8    = 65001
)

type entry struct {
	name string
	enc  encoding.Encoding
}

var table = map[int]entry{
	437:   {"IBM437", charmap.CodePage437},
	850:   {"IBM850", charmap.CodePage850},
	852:   {"IBM852", charmap.CodePage852},
	855:   {"IBM855", charmap.CodePage855},
	858:   {"IBM00858", charmap.CodePage858},
	860:   {"IBM860", charmap.CodePage860},
	862:   {"IBM862", charmap.CodePage862},
	863:   {"IBM863", charmap.CodePage863},
	865:   {"IBM865", charmap.CodePage865},
	866:   {"IBM866", charmap.CodePage866},
	874:   {"windows-874", charmap.Windows874},
	932:   {"Shift_JIS", japanese.ShiftJIS},
	936:   {"GBK", simplifiedchinese.GBK},
	949:   {"EUC-KR", korean.EUCKR},
	950:   {"Big5", traditionalchinese.Big5},
	1200:  {"UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	1201:  {"UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	1250:  {"windows-1250", charmap.Windows1250},
	1251:  {"windows-1251", charmap.Windows1251},
	1252:  {"windows-1252", charmap.Windows1252},
	1253:  {"windows-1253", charmap.Windows1253},
	1254:  {"windows-1254", charmap.Windows1254},
	1255:  {"windows-1255", charmap.Windows1255},
	1256:  {"windows-1256", charmap.Windows1256},
	1257:  {"windows-1257", charmap.Windows1257},
	1258:  {"windows-1258", charmap.Windows1258},
	10000: {"macintosh", charmap.Macintosh},
	10007: {"x-mac-cyrillic", charmap.MacintoshCyrillic},
	20127: {"US-ASCII", nil},
	20866: {"KOI8-R", charmap.KOI8R},
	21866: {"KOI8-U", charmap.KOI8U},
	28591: {"ISO-8859-1", charmap.ISO8859_1},
	28592: {"ISO-8859-2", charmap.ISO8859_2},
	28593: {"ISO-8859-3", charmap.ISO8859_3},
	28594: {"ISO-8859-4", charmap.ISO8859_4},
	28595: {"ISO-8859-5", charmap.ISO8859_5},
	28596: {"ISO-8859-6", charmap.ISO8859_6},
	28597: {"ISO-8859-7", charmap.ISO8859_7},
	28598: {"ISO-8859-8", charmap.ISO8859_8},
	28599: {"ISO-8859-9", charmap.ISO8859_9},
	28603: {"ISO-8859-13", charmap.ISO8859_13},
	28605: {"ISO-8859-15", charmap.ISO8859_15},
	50220: {"ISO-2022-JP", japanese.ISO2022JP},
	51932: {"EUC-JP", japanese.EUCJP},
	54936: {"GB18030", simplifiedchinese.GB18030},
	65001: {"UTF-8", nil},
}

// Known reports whether id is a supported codepage.
func Known(id int) bool {
	if id == Neutral {
		return true
	}
	_, ok := table[id]
	return ok
}

// Name returns the charset name of a codepage, "neutral" for 0 and
// "cp<id>" for unsupported ids.
func Name(id int) string {
	if id == Neutral {
		return "neutral"
	}
	if e, ok := table[id]; ok {
		return e.name
	}
	return "cp" + strconv.Itoa(id)
}

// Encoding returns the decoder of a codepage. The neutral codepage and
// unsupported ids return the Default encoding and false.
func Encoding(id int) (encoding.Encoding, bool) {
	e, ok := table[id]
	if !ok {
		return charmap.Windows1252, false
	}
	if e.enc == nil {
		return encoding.Nop, true
	}
	return e.enc, true
}

// Decode converts text in the given codepage to UTF-8. Bytes that cannot
// be decoded become the Unicode replacement character.
func Decode(id int, b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if id == UTF8 || (id == 20127 || id == Neutral) && isASCII(b) {
		if utf8.Valid(b) {
			return string(b)
		}
	}
	enc, _ := Encoding(id)
	if enc == encoding.Nop {
		return string(b)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		// keep the raw bytes
		return string(b)
	}
	return string(out)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

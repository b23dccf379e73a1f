package propset

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Property value types (VARENUM).
const (
	VTEmpty    uint16 = 0
	VTNull     uint16 = 1
	VTI2       uint16 = 2
	VTI4       uint16 = 3
	VTBool     uint16 = 11
	VTUI2      uint16 = 18
	VTUI4      uint16 = 19
	VTI8       uint16 = 20
	VTUI8      uint16 = 21
	VTInt      uint16 = 22
	VTUInt     uint16 = 23
	VTLPStr    uint16 = 30
	VTLPWStr   uint16 = 31
	VTFileTime uint16 = 64
	VTBlob     uint16 = 65
	VTCLSID    uint16 = 72
)

// Kind classifies a decoded property value.
type Kind int

const (
	KindEmpty Kind = iota
	KindInt
	KindBool
	KindString
	KindFileTime
	KindGUID
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindFileTime:
		return "filetime"
	case KindGUID:
		return "guid"
	case KindBlob:
		return "blob"
	}
	return "empty"
}

// Value is one typed property value.
type Value struct {
	// Type is the VARENUM tag as stored.
	Type uint16
	Kind Kind

	i    int64
	s    string
	ft   uint64
	guid uuid.UUID
	blob []byte
}

// Int returns integer and boolean values.
func (v Value) Int() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.i, true
	case KindBool:
		if v.i != 0 {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Bool returns boolean values.
func (v Value) Bool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.i != 0, true
}

// Str returns string values.
func (v Value) Str() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.s, true
}

// Time returns FILETIME values as UTC time.
func (v Value) Time() (time.Time, bool) {
	if v.Kind != KindFileTime {
		return time.Time{}, false
	}
	return ConvertFileTime(v.ft), true
}

// FileTime returns the raw FILETIME tick count.
func (v Value) FileTime() (uint64, bool) {
	return v.ft, v.Kind == KindFileTime
}

// GUID returns CLSID values.
func (v Value) GUID() (uuid.UUID, bool) {
	return v.guid, v.Kind == KindGUID
}

// Blob returns VT_BLOB payloads.
func (v Value) Blob() ([]byte, bool) {
	return v.blob, v.Kind == KindBlob
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindString:
		return v.s
	case KindFileTime:
		return ConvertFileTime(v.ft).Format(time.RFC3339)
	case KindGUID:
		return v.guid.String()
	case KindBlob:
		return hex.EncodeToString(v.blob)
	}
	return ""
}

// IntValue makes an integer Value.
func IntValue(n int64) Value {
	return Value{Type: VTI4, Kind: KindInt, i: n}
}

// StringValue makes a string Value.
func StringValue(s string) Value {
	return Value{Type: VTLPStr, Kind: KindString, s: s}
}

// TimeValue makes a FILETIME Value.
func TimeValue(t time.Time) Value {
	return Value{Type: VTFileTime, Kind: KindFileTime, ft: FileTime(t)}
}

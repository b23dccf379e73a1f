package cfbtest

import (
	"encoding/binary"
	"unicode/utf16"
)

// Property is one entry for PropertySet.
type Property struct {
	ID   uint32
	Type uint16
	// Value is an int16, int32, uint32, bool, string, uint64 (FILETIME),
	// [16]byte (CLSID) or []byte (raw LPSTR bytes, or a BLOB) matching Type.
	Value interface{}
}

// SummaryFMTID is the summary information format id in its stored layout.
var SummaryFMTID = []byte{
	0xE0, 0x85, 0x9F, 0xF2, 0xF9, 0x4F, 0x68, 0x10,
	0xAB, 0x91, 0x08, 0x00, 0x2B, 0x27, 0xB3, 0xD9,
}

// PropertySet encodes a single section summary information stream.
func PropertySet(props ...Property) []byte {
	le := binary.LittleEndian
	var values [][]byte
	for _, p := range props {
		buf := make([]byte, 4)
		le.PutUint16(buf, p.Type)
		switch v := p.Value.(type) {
		case int16:
			buf = put16(buf, uint16(v))
		case int32:
			buf = put32(buf, uint32(v))
		case uint32:
			buf = put32(buf, v)
		case bool:
			b := uint16(0)
			if v {
				b = 0xFFFF
			}
			buf = put16(buf, b)
		case uint64:
			buf = put64(buf, v)
		case string:
			if p.Type == 31 {
				u := utf16.Encode([]rune(v + "\x00"))
				buf = put32(buf, uint32(len(u)))
				for _, c := range u {
					buf = put16(buf, c)
				}
			} else {
				buf = put32(buf, uint32(len(v)+1))
				buf = append(buf, v...)
				buf = append(buf, 0)
			}
		case [16]byte:
			buf = append(buf, v[:]...)
		case []byte:
			if p.Type == 65 {
				buf = put32(buf, uint32(len(v)))
				buf = append(buf, v...)
				break
			}
			buf = put32(buf, uint32(len(v)+1))
			buf = append(buf, v...)
			buf = append(buf, 0)
		}
		for len(buf)%4 != 0 {
			buf = append(buf, 0)
		}
		values = append(values, buf)
	}

	table := 8 + len(props)*8
	size := table
	for _, v := range values {
		size += len(v)
	}

	out := make([]byte, 48, 48+size)
	le.PutUint16(out[0:], 0xFFFE)
	le.PutUint32(out[4:], 0x00020006)
	le.PutUint32(out[24:], 1)
	copy(out[28:], SummaryFMTID)
	le.PutUint32(out[44:], 48)

	out = put32(out, uint32(size))
	out = put32(out, uint32(len(props)))
	offs := table
	for i, p := range props {
		out = put32(out, p.ID)
		out = put32(out, uint32(offs))
		offs += len(values[i])
	}
	for _, v := range values {
		out = append(out, v...)
	}
	return out
}

func put16(b []byte, v uint16) []byte {
	return append(b, byte(v), byte(v>>8))
}

func put32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func put64(b []byte, v uint64) []byte {
	return put32(put32(b, uint32(v)), uint32(v>>32))
}

package msi

import "strconv"

// ValueKind tells which field of a Value is set.
type ValueKind int

const (
	Null ValueKind = iota
	Int
	String
	// Stream values name the auxiliary stream holding a binary cell.
	Stream
)

// Value is one decoded table cell.
type Value struct {
	Kind ValueKind
	Int  int32
	Str  string
	// Ref is the string pool id of String values.
	Ref uint32
}

// IsNull reports whether the cell holds no value.
func (v Value) IsNull() bool {
	return v.Kind == Null
}

// String renders the cell. Null cells render as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case Int:
		return strconv.FormatInt(int64(v.Int), 10)
	case String, Stream:
		return v.Str
	}
	return ""
}

// Row is an ordered list of cells, one per table column.
type Row []Value

// Strings renders every cell of the row.
func (r Row) Strings() []string {
	res := make([]string, len(r))
	for i, v := range r {
		res[i] = v.String()
	}
	return res
}

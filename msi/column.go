package msi

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
)

// Bits of the column type word stored in _Columns.
const (
	colSizeMask    = 0x00ff
	colValid       = 0x0100
	colLocalizable = 0x0200
	colNonBinary   = 0x0400
	colString      = 0x0800
	colNullable    = 0x1000
	colKey         = 0x2000
	colTemporary   = 0x4000
)

// ColumnType is the storage class of a column.
type ColumnType int

const (
	ColumnInt16 ColumnType = iota
	ColumnInt32
	ColumnString
	// ColumnBinary cells only flag whether an auxiliary stream is present.
	ColumnBinary
)

func (t ColumnType) String() string {
	switch t {
	case ColumnInt16:
		return "int16"
	case ColumnInt32:
		return "int32"
	case ColumnString:
		return "string"
	case ColumnBinary:
		return "binary"
	}
	return "unknown"
}

// Column describes one column of a table.
type Column struct {
	Name   string
	Number int
	Type   ColumnType
	// Size is the declared maximum length of a string column, 0 meaning
	// unlimited, or the byte width of an integer column.
	Size int

	Nullable    bool
	Key         bool
	Localizable bool
	Temporary   bool

	// Bits is the raw type word.
	Bits uint16
}

func newColumn(name string, number int, bits uint16) (*Column, error) {
	c := &Column{
		Name:        name,
		Number:      number,
		Size:        int(bits & colSizeMask),
		Nullable:    bits&colNullable != 0,
		Key:         bits&colKey != 0,
		Localizable: bits&colLocalizable != 0,
		Temporary:   bits&colTemporary != 0,
		Bits:        bits,
	}
	if bits&colValid == 0 {
		return c, errors.Wrapf(msiparser.ErrUnknownColumnType, "msi: column %s type 0x%04x lacks the valid bit", name, bits)
	}
	switch {
	case bits&colString != 0 && bits&colNonBinary != 0:
		c.Type = ColumnString
	case bits&colString != 0:
		c.Type = ColumnBinary
	case c.Size == 1 || c.Size == 2:
		c.Type = ColumnInt16
	case c.Size == 4:
		c.Type = ColumnInt32
	default:
		return c, errors.Wrapf(msiparser.ErrUnknownColumnType, "msi: column %s type 0x%04x", name, bits)
	}
	return c, nil
}

// Width returns the number of bytes a cell of this column occupies.
func (c *Column) Width(refSize int) int {
	switch c.Type {
	case ColumnString:
		return refSize
	case ColumnInt32:
		return 4
	}
	return 2
}

// IDTType renders the column type the way .idt archives declare it, such
// as s72, L0, I2 or v0. Upper case marks nullable columns.
func (c *Column) IDTType() string {
	var code byte
	size := c.Size
	switch c.Type {
	case ColumnString:
		code = 's'
		if c.Localizable {
			code = 'l'
		}
	case ColumnBinary:
		code, size = 'v', 0
	case ColumnInt16:
		code, size = 'i', 2
	case ColumnInt32:
		code = 'i'
	}
	if c.Nullable {
		code -= 'a' - 'A'
	}
	return fmt.Sprintf("%c%d", code, size)
}

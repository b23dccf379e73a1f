package msi

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"github.com/msitools/msiparser"
)

// Table is a decoded database table.
type Table struct {
	Name    string
	Columns []*Column
	Rows    []Row

	err error
}

// Err returns the error that made the table unusable, if any. A table with
// an error has no rows.
func (t *Table) Err() error {
	return t.err
}

// ColumnNames returns the column names in column order.
func (t *Table) ColumnNames() []string {
	return lo.Map(t.Columns, func(c *Column, _ int) string { return c.Name })
}

// KeyColumns returns the primary key columns in column order.
func (t *Table) KeyColumns() []*Column {
	return lo.Filter(t.Columns, func(c *Column, _ int) bool { return c.Key })
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	return lo.Find(t.Columns, func(c *Column) bool { return c.Name == name })
}

// Strings renders every row.
func (t *Table) Strings() [][]string {
	return lo.Map(t.Rows, func(r Row, _ int) []string { return r.Strings() })
}

// Cursor returns an iterator over the rows of the table.
func (t *Table) Cursor() msiparser.Collection {
	return &cursor{t: t, row: -1}
}

type cursor struct {
	t   *Table
	row int
}

func (c *cursor) Columns() []string {
	return c.t.ColumnNames()
}

// Next advances to the next record of content.
// It MUST be called prior to any Scan().
func (c *cursor) Next() bool {
	if c.row < len(c.t.Rows) {
		c.row++
	}
	return c.row < len(c.t.Rows)
}

// Strings extracts values from the current record into a list of strings.
func (c *cursor) Strings() []string {
	return c.t.Rows[c.row].Strings()
}

// Scan extracts values from the current record into the provided arguments
// Arguments must be pointers to one of 6 supported types:
//	bool, int, int32, int64, string, or interface{}
// Null cells scan as the zero value.
func (c *cursor) Scan(args ...interface{}) error {
	row := c.t.Rows[c.row]
	if len(row) != len(args) {
		return fmt.Errorf("msi: expected %d Scan destinations, got %d", len(row), len(args))
	}

	for i, a := range args {
		v := row[i]
		switch d := a.(type) {
		case *bool:
			switch v.Kind {
			case Int:
				*d = v.Int != 0
			case String, Stream:
				*d = v.Str != ""
			default:
				*d = false
			}
		case *int:
			n, err := scanInt(v)
			if err != nil {
				return err
			}
			*d = int(n)
		case *int32:
			n, err := scanInt(v)
			if err != nil {
				return err
			}
			*d = int32(n)
		case *int64:
			n, err := scanInt(v)
			if err != nil {
				return err
			}
			*d = n
		case *string:
			*d = v.String()
		case *interface{}:
			switch v.Kind {
			case Int:
				*d = v.Int
			case String, Stream:
				*d = v.Str
			default:
				*d = nil
			}
		default:
			return msiparser.ErrInvalidScanType
		}
	}
	return nil
}

func scanInt(v Value) (int64, error) {
	switch v.Kind {
	case Int:
		return int64(v.Int), nil
	case Null:
		return 0, nil
	}
	return strconv.ParseInt(v.Str, 10, 64)
}

// IsEmpty returns true if there are no data values.
func (c *cursor) IsEmpty() bool {
	return len(c.t.Rows) == 0
}

// Err returns the last error that occured.
func (c *cursor) Err() error {
	return c.t.err
}

package msi

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/cfb"
)

// decodeRows fills in the rows of a table from its data stream. Any error
// leaves the table without rows.
func decodeRows(t *Table, doc *cfb.Document, pool *StringPool) error {
	if t.err != nil {
		return t.err
	}
	data, err := systemStream(doc, t.Name)
	if err != nil {
		t.err = errors.Wrapf(err, "msi: reading table %s", t.Name)
		return t.err
	}
	if len(data) == 0 {
		return nil
	}

	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = c.Width(pool.RefSize())
	}
	cells, err := readColumnMajor(data, widths)
	if err != nil {
		t.err = errors.Wrapf(err, "msi: table %s", t.Name)
		return t.err
	}

	keys := make([]int, 0, len(t.Columns))
	hasBinary := false
	for i, c := range t.Columns {
		if c.Key {
			keys = append(keys, i)
		}
		if c.Type == ColumnBinary {
			hasBinary = true
		}
	}

	rows := make([]Row, len(cells))
	for i, raw := range cells {
		row := make(Row, len(t.Columns))
		for j, c := range t.Columns {
			v, err := decodeCell(c, raw[j], pool)
			if err != nil {
				t.err = errors.Wrapf(err, "msi: table %s row %d", t.Name, i+1)
				return t.err
			}
			row[j] = v
		}
		if hasBinary {
			name := binaryStreamName(t.Name, row, keys)
			for j, c := range t.Columns {
				if c.Type == ColumnBinary && row[j].Kind == Stream {
					row[j].Str = name
				}
			}
		}
		rows[i] = row
	}
	t.Rows = rows
	return nil
}

func decodeCell(c *Column, raw uint32, pool *StringPool) (Value, error) {
	if raw == 0 {
		return Value{}, nil
	}
	switch c.Type {
	case ColumnString:
		s, ok := pool.Get(raw)
		if !ok {
			return Value{}, errors.Wrapf(msiparser.ErrRowDecode, "column %s: string ref %d outside pool of %d", c.Name, raw, pool.Len())
		}
		return Value{Kind: String, Str: s, Ref: raw}, nil
	case ColumnInt16:
		return Value{Kind: Int, Int: int32(int16(uint16(raw) ^ 0x8000))}, nil
	case ColumnInt32:
		return Value{Kind: Int, Int: int32(raw ^ 0x80000000)}, nil
	case ColumnBinary:
		return Value{Kind: Stream}, nil
	}
	return Value{}, errors.Wrapf(msiparser.ErrUnknownColumnType, "column %s", c.Name)
}

// binaryStreamName is the name of the auxiliary stream behind the binary
// cells of a row: the table name followed by the primary key values.
func binaryStreamName(table string, row Row, keys []int) string {
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, table)
	for _, k := range keys {
		parts = append(parts, row[k].String())
	}
	return strings.Join(parts, ".")
}

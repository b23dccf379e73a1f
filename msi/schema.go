package msi

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/cfb"
	"github.com/msitools/msiparser/internal/log"
)

// Names of the system tables describing the database.
const (
	TablesTable     = "_Tables"
	ColumnsTable    = "_Columns"
	StringPoolTable = "_StringPool"
	StringDataTable = "_StringData"
)

// readColumnMajor splits a table stream into cells. Tables are stored
// column by column: every cell of the first column, then every cell of the
// second, and so on.
func readColumnMajor(data []byte, widths []int) ([][]uint32, error) {
	rowSize := 0
	for _, w := range widths {
		rowSize += w
	}
	if rowSize == 0 {
		return nil, errors.Wrap(msiparser.ErrRowDecode, "msi: table has no columns")
	}
	if len(data)%rowSize != 0 {
		return nil, errors.Wrapf(msiparser.ErrRowDecode, "msi: %d bytes is not a multiple of the %d byte row", len(data), rowSize)
	}
	numRows := len(data) / rowSize

	le := binary.LittleEndian
	rows := make([][]uint32, numRows)
	cells := make([]uint32, numRows*len(widths))
	for i := range rows {
		rows[i] = cells[i*len(widths) : (i+1)*len(widths)]
	}
	offs := 0
	for j, w := range widths {
		for i := 0; i < numRows; i++ {
			b := data[offs+i*w:]
			switch w {
			case 2:
				rows[i][j] = uint32(le.Uint16(b))
			case 3:
				rows[i][j] = uint32(le.Uint16(b)) | uint32(b[2])<<16
			case 4:
				rows[i][j] = le.Uint32(b)
			}
		}
		offs += w * numRows
	}
	return rows, nil
}

// systemStream reads a table stream by its decoded name. A missing stream
// reads as an empty table.
func systemStream(doc *cfb.Document, name string) ([]byte, error) {
	e, ok := doc.Entry(EncodeName(name, true))
	if !ok || !e.IsStream() {
		return nil, nil
	}
	return doc.ReadEntry(e)
}

type schema struct {
	tables []*Table
}

func loadSchema(doc *cfb.Document, pool *StringPool) (*schema, error) {
	ref := pool.RefSize()
	str := func(id uint32) (string, error) {
		s, ok := pool.Get(id)
		if !ok {
			return "", errors.Wrapf(msiparser.ErrRowDecode, "msi: string ref %d outside pool of %d", id, pool.Len())
		}
		return s, nil
	}

	data, err := systemStream(doc, TablesTable)
	if err != nil {
		return nil, errors.Wrap(err, "msi: reading _Tables")
	}
	rows, err := readColumnMajor(data, []int{ref})
	if err != nil {
		return nil, errors.Wrap(err, "msi: decoding _Tables")
	}
	s := &schema{}
	byName := make(map[string]*Table, len(rows))
	for _, r := range rows {
		name, err := str(r[0])
		if err != nil {
			return nil, errors.Wrap(err, "msi: decoding _Tables")
		}
		if _, dup := byName[name]; dup {
			log.Warning("duplicate table", map[string]interface{}{log.KeyTable: name})
			continue
		}
		t := &Table{Name: name}
		byName[name] = t
		s.tables = append(s.tables, t)
	}

	data, err = systemStream(doc, ColumnsTable)
	if err != nil {
		return nil, errors.Wrap(err, "msi: reading _Columns")
	}
	// Table, Number, Name, Type
	rows, err = readColumnMajor(data, []int{ref, 2, ref, 2})
	if err != nil {
		return nil, errors.Wrap(err, "msi: decoding _Columns")
	}
	for _, r := range rows {
		tableName, err := str(r[0])
		if err != nil {
			return nil, errors.Wrap(err, "msi: decoding _Columns")
		}
		colName, err := str(r[2])
		if err != nil {
			return nil, errors.Wrap(err, "msi: decoding _Columns")
		}
		t, ok := byName[tableName]
		if !ok {
			log.Debug("column of unlisted table", map[string]interface{}{
				log.KeyTable: tableName,
				"column":     colName,
			})
			continue
		}
		number := int(int16(uint16(r[1]) ^ 0x8000))
		bits := uint16(r[3]) ^ 0x8000
		col, err := newColumn(colName, number, bits)
		if err != nil && t.err == nil {
			t.err = errors.Wrapf(err, "msi: table %s", tableName)
		}
		t.Columns = append(t.Columns, col)
	}

	for _, t := range s.tables {
		sort.SliceStable(t.Columns, func(i, j int) bool { return t.Columns[i].Number < t.Columns[j].Number })
		if t.err == nil && len(t.Columns) == 0 {
			t.err = errors.Wrapf(msiparser.ErrRowDecode, "msi: table %s has no columns", t.Name)
		}
	}
	return s, nil
}

// isSystemTable reports whether name is one of the tables that describe
// the database itself.
func isSystemTable(name string) bool {
	switch name {
	case TablesTable, ColumnsTable, StringPoolTable, StringDataTable:
		return true
	}
	return false
}

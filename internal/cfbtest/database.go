package cfbtest

import "sort"

// Column type word bits, as stored in _Columns before the 0x8000 flip.
const (
	ColValid       uint16 = 0x0100
	ColLocalizable uint16 = 0x0200
	ColNonBinary   uint16 = 0x0400
	ColString      uint16 = 0x0800
	ColNullable    uint16 = 0x1000
	ColKey         uint16 = 0x2000
)

// Common column types.
const (
	TypeKeyString      = ColValid | ColNonBinary | ColString | ColKey | 72
	TypeString         = ColValid | ColNonBinary | ColString | 64
	TypeNullableString = ColValid | ColNonBinary | ColString | ColNullable | ColLocalizable
	TypeKeyInt16       = ColValid | ColKey | 2
	TypeInt16          = ColValid | 2
	TypeNullableInt32  = ColValid | ColNullable | 4
	TypeBinary         = ColValid | ColString | ColNullable
)

// RawCell is stored as is, bypassing the string pool and integer flips.
type RawCell uint32

// Column is one column of a Table.
type Column struct {
	Name string
	Type uint16
}

// Table is the schema and content of one database table. Cells are nil
// (null), string, int, bool (binary columns) or RawCell.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]interface{}
}

// Database lays out a minimal installer database: string pool, _Tables,
// _Columns, one stream per table and optional summary information.
type Database struct {
	Codepage uint32
	LongRefs bool
	Summary  []Property

	// Skip leaves table streams out of the container.
	Skip map[string]bool
	// RawData replaces the generated content of a table stream.
	RawData map[string][]byte
	// OrphanColumns are added to _Columns for tables absent from _Tables.
	OrphanColumns []Table

	encode  func(name string, isTable bool) string
	tables  []Table
	streams map[string][]byte
	pool    []string
	ids     map[string]uint32
}

// NewDatabase returns an empty Windows-1252 database. encode compresses
// table names into stream names.
func NewDatabase(encode func(name string, isTable bool) string) *Database {
	return &Database{
		Codepage: 1252,
		Skip:     make(map[string]bool),
		RawData:  make(map[string][]byte),
		encode:   encode,
		streams:  make(map[string][]byte),
		ids:      make(map[string]uint32),
	}
}

// Table appends a table.
func (d *Database) Table(name string, columns []Column, rows ...[]interface{}) *Database {
	d.tables = append(d.tables, Table{Name: name, Columns: columns, Rows: rows})
	return d
}

// Stream adds a stream stored under its literal path.
func (d *Database) Stream(path string, data []byte) *Database {
	d.streams[path] = data
	return d
}

func (d *Database) intern(s string) uint32 {
	if s == "" {
		return 0
	}
	if id, ok := d.ids[s]; ok {
		return id
	}
	d.pool = append(d.pool, s)
	d.ids[s] = uint32(len(d.pool))
	return d.ids[s]
}

// PutCell appends a little endian cell of width bytes.
func PutCell(buf []byte, width int, v uint32) []byte {
	switch width {
	case 2:
		return append(buf, byte(v), byte(v>>8))
	case 3:
		return append(buf, byte(v), byte(v>>8), byte(v>>16))
	}
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (d *Database) width(bits uint16) int {
	switch {
	case bits&ColString != 0 && bits&ColNonBinary != 0:
		if d.LongRefs {
			return 3
		}
		return 2
	case bits&ColString == 0 && bits&0xff == 4:
		return 4
	}
	return 2
}

func (d *Database) cell(bits uint16, v interface{}) uint32 {
	switch v := v.(type) {
	case nil:
		return 0
	case RawCell:
		return uint32(v)
	case string:
		return d.intern(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		if d.width(bits) == 4 {
			return uint32(int32(v)) ^ 0x80000000
		}
		return uint32(uint16(int16(v)) ^ 0x8000)
	}
	panic("cfbtest: unsupported cell")
}

// columnMajor writes rows column by column.
func (d *Database) columnMajor(types []uint16, rows [][]interface{}) []byte {
	var buf []byte
	for j, t := range types {
		for _, r := range rows {
			buf = PutCell(buf, d.width(t), d.cell(t, r[j]))
		}
	}
	return buf
}

func (d *Database) stringPool() (pool, data []byte) {
	header := d.Codepage
	if d.LongRefs {
		header |= 0x80000000
	}
	pool = PutCell(nil, 4, header)
	for _, s := range d.pool {
		n := len(s)
		if n > 0xFFFF {
			pool = PutCell(pool, 2, 0)
			pool = PutCell(pool, 2, uint32(n>>16))
		}
		pool = PutCell(pool, 2, uint32(n&0xFFFF))
		pool = PutCell(pool, 2, 1)
		data = append(data, s...)
	}
	return pool, data
}

// Bytes builds the compound file.
func (d *Database) Bytes() []byte {
	ref := ColValid | ColNonBinary | ColString

	var tablesRows, columnsRows [][]interface{}
	for _, t := range d.tables {
		tablesRows = append(tablesRows, []interface{}{t.Name})
	}
	for _, t := range append(append([]Table{}, d.tables...), d.OrphanColumns...) {
		for i, c := range t.Columns {
			columnsRows = append(columnsRows, []interface{}{t.Name, i + 1, c.Name, RawCell(uint32(c.Type) ^ 0x8000)})
		}
	}
	tables := d.columnMajor([]uint16{ref}, tablesRows)
	columns := d.columnMajor([]uint16{ref, TypeInt16, ref, TypeInt16}, columnsRows)

	data := make(map[string][]byte, len(d.tables))
	for _, t := range d.tables {
		types := make([]uint16, len(t.Columns))
		for i, c := range t.Columns {
			types[i] = c.Type
		}
		data[t.Name] = d.columnMajor(types, t.Rows)
	}
	pool, strData := d.stringPool()

	b := New()
	add := func(name string, content []byte) {
		if d.Skip[name] {
			return
		}
		if raw, ok := d.RawData[name]; ok {
			content = raw
		}
		b.AddStream(d.encode(name, true), content)
	}
	add("_StringPool", pool)
	add("_StringData", strData)
	add("_Tables", tables)
	add("_Columns", columns)
	for _, t := range d.tables {
		add(t.Name, data[t.Name])
	}
	if d.Summary != nil {
		b.AddStream("\x05SummaryInformation", PropertySet(d.Summary...))
	}
	paths := make([]string, 0, len(d.streams))
	for path := range d.streams {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		b.AddStream(path, d.streams[path])
	}
	out, _ := b.Build()
	return out
}

// Package idt writes decoded installer tables as .idt text archives, the
// tab separated format msidb imports and exports.
package idt

import (
	"bufio"
	"io"
	"strings"

	"github.com/msitools/msiparser/msi"
)

// Ext is the file extension of a table archive.
const Ext = ".idt"

// BinaryExt is the file extension of the payload behind a binary cell.
const BinaryExt = ".ibd"

var escaper = strings.NewReplacer("\t", "\x10", "\r", "\x11", "\n", "\x19")

// Escape replaces the characters that would break the line structure.
func Escape(s string) string {
	return escaper.Replace(s)
}

// BinaryFile returns the archive file name holding the stream of a binary
// cell, relative to the directory named after the table. It is empty for
// null cells.
func BinaryFile(v msi.Value) string {
	if v.Kind != msi.Stream {
		return ""
	}
	return v.Str + BinaryExt
}

// Write renders t: column names, column types, the table name followed by
// its key columns, then one line per row.
func Write(w io.Writer, t *msi.Table) error {
	bw := bufio.NewWriter(w)
	line := func(cells []string) {
		for i, c := range cells {
			if i != 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(Escape(c))
		}
		bw.WriteString("\r\n")
	}

	names := t.ColumnNames()
	types := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		types[i] = c.IDTType()
	}
	header := []string{t.Name}
	for _, c := range t.KeyColumns() {
		header = append(header, c.Name)
	}
	line(names)
	line(types)
	line(header)

	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			if v.Kind == msi.Stream {
				cells[i] = BinaryFile(v)
				continue
			}
			cells[i] = v.String()
		}
		line(cells)
	}
	return bw.Flush()
}

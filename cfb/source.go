package cfb

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
)

// StreamsTable is the name of the single virtual table a plain compound
// file exposes through the msiparser.Source interface.
const StreamsTable = "_Streams"

var _ = msiparser.Register("cfb", 10, OpenSource)

// OpenSource opens any compound file as a msiparser.Source listing its
// streams.
func OpenSource(filename string) (msiparser.Source, error) {
	d, err := Open(filename)
	if err != nil {
		return nil, err
	}
	return &source{d: d}, nil
}

type source struct {
	d *Document
}

// List the individual data tables within this source.
func (s *source) List() ([]string, error) {
	return []string{StreamsTable}, nil
}

func (s *source) Close() error {
	return s.d.Close()
}

// Get a Collection from the source by name.
func (s *source) Get(name string) (msiparser.Collection, error) {
	if name != StreamsTable {
		return nil, errors.Wrapf(msiparser.ErrStreamNotFound, "cfb: no table '%s'", name)
	}
	t := &streamsTable{iterRow: -1}
	for _, e := range s.d.Streams() {
		t.rows = append(t.rows, []string{e.Path, PrintableName(e.Name), strconv.FormatUint(e.Size, 10)})
	}
	return t, nil
}

// PrintableName drops control and other non-graphic characters, such as
// the \x05 prefix of property set streams.
func PrintableName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsGraphic(r) {
			return r
		}
		return -1
	}, name)
}

// FileName turns a stream name into a single safe path element: only
// printable ASCII and spaces are kept, path separators become '_' and the
// names "." and ".." are replaced.
func FileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x80 && (unicode.IsGraphic(r) || unicode.IsSpace(r)):
			return r
		}
		return -1
	}, name)
	switch strings.TrimSpace(name) {
	case "", ".", "..":
		return "_" + name
	}
	return name
}

type streamsTable struct {
	rows    [][]string
	iterRow int
}

func (t *streamsTable) Columns() []string {
	return []string{"Path", "Name", "Size"}
}

// Next advances to the next record of content.
// It MUST be called prior to any Scan().
func (t *streamsTable) Next() bool {
	t.iterRow++
	return t.iterRow < len(t.rows)
}

// Strings extracts values from the current record into a list of strings.
func (t *streamsTable) Strings() []string {
	return t.rows[t.iterRow]
}

// Scan extracts values from the current record into the provided arguments.
func (t *streamsTable) Scan(args ...interface{}) error {
	var err error
	row := t.rows[t.iterRow]
	if len(row) != len(args) {
		return fmt.Errorf("cfb: expected %d Scan destinations, got %d", len(row), len(args))
	}

	for i, a := range args {
		switch v := a.(type) {
		case *bool:
			*v = row[i] != "" && row[i] != "0"
		case *int:
			var n int64
			n, err = strconv.ParseInt(row[i], 10, 64)
			*v = int(n)
		case *int32:
			var n int64
			n, err = strconv.ParseInt(row[i], 10, 32)
			*v = int32(n)
		case *int64:
			*v, err = strconv.ParseInt(row[i], 10, 64)
		case *string:
			*v = row[i]
		case *interface{}:
			*v = row[i]
		default:
			return msiparser.ErrInvalidScanType
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty returns true if there are no data values.
func (t *streamsTable) IsEmpty() bool {
	return len(t.rows) == 0
}

// Err returns the last error that occured.
func (t *streamsTable) Err() error {
	return nil
}

// Package msi reads Windows Installer packages: the summary information,
// the string pool, the database tables and the embedded streams.
package msi

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/cfb"
	"github.com/msitools/msiparser/codepage"
	"github.com/msitools/msiparser/internal/log"
	"github.com/msitools/msiparser/propset"
)

var _ = msiparser.Register("msi", 1, OpenSource)

// Package is an opened installer package.
type Package struct {
	doc     *cfb.Document
	pool    *StringPool
	tables  []*Table
	byName  map[string]*Table
	summary *Summary
	report  Report
}

// Open an installer package from disk. A compound file without a string
// pool is reported as msiparser.ErrNotInFormat.
func Open(filename string) (*Package, error) {
	doc, err := cfb.Open(filename)
	if err != nil {
		return nil, err
	}
	p, err := load(doc)
	if err != nil {
		doc.Close()
		return nil, err
	}
	return p, nil
}

// New parses a package held in memory.
func New(data []byte) (*Package, error) {
	doc, err := cfb.New(data)
	if err != nil {
		return nil, err
	}
	return load(doc)
}

// OpenSource opens an installer package as a msiparser.Source.
func OpenSource(filename string) (msiparser.Source, error) {
	return Open(filename)
}

func load(doc *cfb.Document) (*Package, error) {
	poolStream, ok := doc.Entry(EncodeName(StringPoolTable, true))
	if !ok || !poolStream.IsStream() {
		return nil, errors.Wrap(msiparser.ErrNotInFormat, "msi: no string pool")
	}
	p := &Package{doc: doc, byName: make(map[string]*Table)}

	p.summary = newSummary(nil)
	if e, ok := doc.Entry(SummaryInformationStream); ok && e.IsStream() {
		data, err := doc.ReadEntry(e)
		var ps *propset.PropertySet
		if err == nil {
			ps, err = propset.Parse(data)
		}
		p.report.Add(SummaryInformationStream, err)
		if err != nil {
			log.Warning("unreadable summary information", map[string]interface{}{log.KeyError: err})
		} else {
			p.summary = newSummary(ps)
		}
	}

	poolData, err := doc.ReadEntry(poolStream)
	if err != nil {
		return nil, errors.Wrap(err, "msi: reading _StringPool")
	}
	strData, err := systemStream(doc, StringDataTable)
	if err != nil {
		return nil, errors.Wrap(err, "msi: reading _StringData")
	}
	p.pool, err = ParseStringPool(poolData, strData, p.summary.Codepage())
	if err != nil {
		return nil, err
	}
	if cp := p.pool.Codepage(); !codepage.Known(cp) {
		log.Warning("unsupported database codepage, decoding as windows-1252", map[string]interface{}{
			"codepage": cp,
		})
	}

	s, err := loadSchema(doc, p.pool)
	if err != nil {
		return nil, err
	}
	p.tables = s.tables
	for _, t := range p.tables {
		p.byName[t.Name] = t
		err := decodeRows(t, doc, p.pool)
		p.report.Add(t.Name, err)
		if err != nil {
			log.Warning("skipping table", map[string]interface{}{
				log.KeyTable: t.Name,
				log.KeyError: err,
			})
			continue
		}
		log.Debug("decoded table", map[string]interface{}{
			log.KeyTable: t.Name,
			log.KeyRows:  len(t.Rows),
		})
	}
	return p, nil
}

// Close releases the underlying file.
func (p *Package) Close() error {
	return p.doc.Close()
}

// Document gives access to the underlying compound file.
func (p *Package) Document() *cfb.Document {
	return p.doc
}

// StringPool returns the shared string table of the database.
func (p *Package) StringPool() *StringPool {
	return p.pool
}

// Summary returns the summary information. It is empty, never nil, when
// the package has none or it could not be parsed.
func (p *Package) Summary() *Summary {
	return p.summary
}

// Tables returns the user tables in _Tables order, including those that
// failed to decode. Check Table.Err before using the rows.
func (p *Package) Tables() []*Table {
	return lo.Filter(p.tables, func(t *Table, _ int) bool { return !isSystemTable(t.Name) })
}

// Table looks up a table by name.
func (p *Package) Table(name string) (*Table, bool) {
	t, ok := p.byName[name]
	return t, ok
}

// Report lists the outcome of the summary and of every table decoded
// while opening the package.
func (p *Package) Report() *Report {
	return &p.report
}

// List the names of the user tables that decoded without error.
func (p *Package) List() ([]string, error) {
	ok := lo.Filter(p.Tables(), func(t *Table, _ int) bool { return t.err == nil })
	return lo.Map(ok, func(t *Table, _ int) string { return t.Name }), nil
}

// Get a Collection over the rows of a table.
func (p *Package) Get(name string) (msiparser.Collection, error) {
	t, ok := p.byName[name]
	if !ok {
		return nil, errors.Wrapf(msiparser.ErrStreamNotFound, "msi: no table '%s'", name)
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.Cursor(), nil
}

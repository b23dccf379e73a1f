package cfb

import (
	"io"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
)

// Open a Compound File Binary Format document. The file is mapped read-only
// and stays mapped until Close.
func Open(filename string) (*Document, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < headerSize {
		f.Close()
		return nil, notCFB("file is smaller than a header")
	}
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "cfb: mapping %s", filename)
	}

	d := &Document{data: mm, mm: mm, file: f}
	if err = d.load(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// New parses a document held in memory. The slice must not be modified
// while the Document is in use.
func New(data []byte) (*Document, error) {
	d := &Document{data: data}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

// Close releases the file mapping, if any. Slices previously returned by
// OpenEntry must not be used afterwards.
func (d *Document) Close() error {
	var err error
	if d.mm != nil {
		err = d.mm.Unmap()
		d.mm = nil
	}
	if d.file != nil {
		if cerr := d.file.Close(); err == nil {
			err = cerr
		}
		d.file = nil
	}
	d.data = nil
	return err
}

// List the paths of the streams contained in the document, in tree order.
func (d *Document) List() ([]string, error) {
	var res []string
	for _, id := range d.order {
		if e := d.dir[id]; e.Type == TypeStream {
			res = append(res, e.Path)
		}
	}
	return res, nil
}

// Open the stream at the given path.
func (d *Document) Open(name string) (io.ReadSeeker, error) {
	e, ok := d.Entry(name)
	if !ok || !e.IsStream() {
		return nil, errors.Wrapf(msiparser.ErrStreamNotFound, "cfb: stream '%s'", name)
	}
	return d.OpenEntry(e)
}

// Entry looks up a storage or stream by its '/' separated path.
func (d *Document) Entry(path string) (*DirEntry, bool) {
	p := strings.Join(splitPath(path), "/")
	if p == "" {
		return d.Root(), true
	}
	id, ok := d.paths[p]
	if !ok {
		return nil, false
	}
	return d.dir[id], true
}

// Exists reports whether a storage or stream exists at path.
func (d *Document) Exists(path string) bool {
	_, ok := d.Entry(path)
	return ok
}

// Root returns the root storage entry.
func (d *Document) Root() *DirEntry {
	return d.dir[d.root]
}

// Children returns the entries of a storage in sibling tree order.
func (d *Document) Children(e *DirEntry) []*DirEntry {
	res := make([]*DirEntry, len(e.children))
	for i, id := range e.children {
		res[i] = d.dir[id]
	}
	return res
}

// Walk calls fn for every storage and stream below the root, parents
// before their children. It stops at the first error fn returns.
func (d *Document) Walk(fn func(e *DirEntry) error) error {
	for _, id := range d.order {
		if id == d.root {
			continue
		}
		if err := fn(d.dir[id]); err != nil {
			return err
		}
	}
	return nil
}

// Streams returns every stream below the root in Walk order.
func (d *Document) Streams() []*DirEntry {
	var res []*DirEntry
	for _, id := range d.order {
		if e := d.dir[id]; e.IsStream() {
			res = append(res, e)
		}
	}
	return res
}

// SectorSize returns the size of a regular sector in bytes.
func (d *Document) SectorSize() int {
	return d.sectorSize
}

// NumSectors returns the number of (possibly partial) sectors in the file.
func (d *Document) NumSectors() uint32 {
	return d.numSectors
}

// Version returns the major version of the container format.
func (d *Document) Version() int {
	return int(d.header.MajorVersion)
}

package cfb

import (
	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
)

// OpenEntry returns a reader over the content of a stream entry. Streams
// shorter than the mini stream cutoff are read from the mini stream.
func (d *Document) OpenEntry(e *DirEntry) (*SliceReader, error) {
	if e == nil || e.Type != TypeStream {
		return nil, errors.Wrap(msiparser.ErrStreamNotFound, "cfb: not a stream entry")
	}
	if e.Size == 0 {
		return &SliceReader{}, nil
	}

	var c *Chain
	var secSize uint64
	if e.Size < miniStreamCutoff {
		c = d.MiniChain(e.StartSector, e.Size)
		secSize = 1 << miniSectorShift
	} else {
		c = d.Chain(e.StartSector, e.Size)
		secSize = uint64(d.sectorSize)
	}

	// NB streamData is a slice of slices of the raw data, so this is the
	// only allocation - for the (much smaller) list of sector slices
	n := (e.Size + secSize - 1) / secSize
	streamData := make([][]byte, 0, capHint(n, int(d.numSectors)+len(d.ministream)>>miniSectorShift))
	for c.Next() {
		streamData = append(streamData, c.Sector())
	}
	if err := c.Err(); err != nil {
		return nil, errors.Wrapf(err, "cfb: reading stream '%s'", e.Path)
	}
	return &SliceReader{Data: streamData}, nil
}

// ReadEntry returns a copy of the content of a stream entry.
func (d *Document) ReadEntry(e *DirEntry) ([]byte, error) {
	r, err := d.OpenEntry(e)
	if err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}

// ReadStream returns a copy of the content of the stream at path.
func (d *Document) ReadStream(path string) ([]byte, error) {
	e, ok := d.Entry(path)
	if !ok || !e.IsStream() {
		return nil, errors.Wrapf(msiparser.ErrStreamNotFound, "cfb: stream '%s'", path)
	}
	return d.ReadEntry(e)
}

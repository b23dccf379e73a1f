package cfb

import (
	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
)

// Chain walks a sector chain lazily, one sector payload at a time.
//
//	c := doc.Chain(start, size)
//	for c.Next() {
//		buf = append(buf, c.Sector()...)
//	}
//	if err := c.Err(); err != nil { ... }
//
// Every sector index is visited at most once; a chain that links back to a
// sector it already produced fails with ErrChainCycle.
type Chain struct {
	d    *Document
	mini bool

	// bounded chains stop once want bytes were produced and fail with
	// ErrStreamTruncated if the chain ends first.
	bounded bool
	want    uint64

	next    uint32
	cur     uint32
	started bool
	visited map[uint32]struct{}
	sector  []byte
	err     error
}

// Chain returns a walker over the regular sector chain starting at start
// that yields exactly size bytes.
func (d *Document) Chain(start uint32, size uint64) *Chain {
	return &Chain{d: d, bounded: true, want: size, next: start, visited: make(map[uint32]struct{})}
}

// MiniChain returns a walker over the mini sector chain starting at start
// that yields exactly size bytes of the mini stream.
func (d *Document) MiniChain(start uint32, size uint64) *Chain {
	c := &Chain{d: d, mini: true, bounded: true, want: size, next: start, visited: make(map[uint32]struct{})}
	if size > 0 && d.ministreamErr != nil {
		c.err = d.ministreamErr
	}
	return c
}

// chainAll follows a regular chain until its end-of-chain marker.
func (d *Document) chainAll(start uint32) *Chain {
	return &Chain{d: d, next: start, visited: make(map[uint32]struct{})}
}

// Next advances to the next sector of the chain.
func (c *Chain) Next() bool {
	if c.err != nil {
		return false
	}
	if c.bounded && c.want == 0 {
		return false
	}
	if c.started {
		next, err := c.d.follow(c.cur, c.mini)
		if err != nil {
			c.err = err
			return false
		}
		c.next = next
	}
	c.started = true

	sid := c.next
	if sid == secEndOfChain || sid == secFree {
		if c.bounded {
			c.err = errors.Wrapf(msiparser.ErrStreamTruncated, "cfb: chain ended with %d bytes outstanding", c.want)
		}
		return false
	}
	if _, seen := c.visited[sid]; seen {
		c.err = errors.Wrapf(msiparser.ErrChainCycle, "cfb: sector %d revisited", sid)
		return false
	}
	c.visited[sid] = struct{}{}

	var payload []byte
	var err error
	size := c.d.sectorSize
	if c.mini {
		payload, err = c.d.miniSector(sid)
		size = 1 << miniSectorShift
	} else {
		payload, err = c.d.sector(sid)
	}
	if err != nil {
		c.err = err
		return false
	}

	if c.bounded {
		if uint64(len(payload)) > c.want {
			payload = payload[:c.want]
		} else if len(payload) < size && uint64(len(payload)) < c.want {
			c.err = errors.Wrapf(msiparser.ErrStreamTruncated, "cfb: sector %d ends the file", sid)
			return false
		}
		c.want -= uint64(len(payload))
	}
	c.cur = sid
	c.sector = payload
	return true
}

// Sector returns the payload of the current sector. For bounded chains the
// final payload is trimmed to the requested size.
func (c *Chain) Sector() []byte {
	return c.sector
}

// ID returns the index of the current sector.
func (c *Chain) ID() uint32 {
	return c.cur
}

// Err returns the error that stopped the walk, if any.
func (c *Chain) Err() error {
	return c.err
}

// follow looks up the allocation table entry of sid.
func (d *Document) follow(sid uint32, mini bool) (uint32, error) {
	table := d.fat
	if mini {
		table = d.minifat
	}
	if sid >= uint32(len(table)) {
		return 0, invalid("sector %d has no allocation entry", sid)
	}
	next := table[sid]
	if next > secMaxRegular && next != secEndOfChain && next != secFree {
		return 0, invalid("sector %d links to reserved value 0x%08x", sid, next)
	}
	return next, nil
}

func (d *Document) miniSector(sid uint32) ([]byte, error) {
	offs := uint64(sid) << miniSectorShift
	if offs >= uint64(len(d.ministream)) {
		return nil, invalid("mini sector %d out of range (%d mini sectors)", sid,
			(len(d.ministream)+(1<<miniSectorShift)-1)>>miniSectorShift)
	}
	end := offs + 1<<miniSectorShift
	if end > uint64(len(d.ministream)) {
		end = uint64(len(d.ministream))
	}
	return d.ministream[offs:end], nil
}

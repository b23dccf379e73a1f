package msi

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/codepage"
	"github.com/msitools/msiparser/internal/log"
)

const longStringRefs = 0x80000000

type poolEntry struct {
	text     string
	refcount uint32
}

// StringPool is the interned string table of a package. Ids are 1-based;
// id 0 stands for the null string.
type StringPool struct {
	codepage int
	longRefs bool
	entries  []poolEntry
}

// ParseStringPool pairs the _StringPool entries with the bytes of
// _StringData. A pool without a codepage of its own decodes with
// fallbackCodepage.
func ParseStringPool(pool, data []byte, fallbackCodepage int) (*StringPool, error) {
	le := binary.LittleEndian
	if len(pool) < 4 {
		return nil, errors.Wrapf(msiparser.ErrStringPoolMismatch, "msi: string pool header of %d bytes", len(pool))
	}
	header := le.Uint32(pool)
	sp := &StringPool{
		codepage: int(header &^ longStringRefs),
		longRefs: header&longStringRefs != 0,
	}
	if sp.codepage == codepage.Neutral {
		sp.codepage = fallbackCodepage
		if sp.codepage == codepage.Neutral {
			sp.codepage = codepage.Default
		}
	}

	type span struct {
		length   uint32
		refcount uint32
	}
	var spans []span
	offs := 4
	for offs+4 <= len(pool) {
		length := uint32(le.Uint16(pool[offs:]))
		refcount := uint32(le.Uint16(pool[offs+2:]))
		offs += 4
		if length == 0 && refcount > 0 {
			// long entry: the refcount field holds the high length word
			if offs+4 > len(pool) {
				return nil, errors.Wrap(msiparser.ErrStringPoolMismatch, "msi: long string entry cut short")
			}
			length = refcount<<16 | uint32(le.Uint16(pool[offs:]))
			refcount = uint32(le.Uint16(pool[offs+2:]))
			offs += 4
		}
		spans = append(spans, span{length, refcount})
	}
	if offs != len(pool) {
		log.Debug("string pool has trailing bytes", map[string]interface{}{
			"trailing": len(pool) - offs,
		})
	}

	var total uint64
	for _, s := range spans {
		total += uint64(s.length)
	}
	if total > uint64(len(data)) {
		return nil, errors.Wrapf(msiparser.ErrStringPoolMismatch, "msi: pool lengths add up to %d bytes, string data holds %d", total, len(data))
	}

	sp.entries = make([]poolEntry, len(spans))
	pos := uint32(0)
	for i, s := range spans {
		sp.entries[i] = poolEntry{
			text:     codepage.Decode(sp.codepage, data[pos:pos+s.length]),
			refcount: s.refcount,
		}
		pos += s.length
	}
	if len(sp.entries) > 0xFFFF {
		sp.longRefs = true
	}
	return sp, nil
}

// Get returns the string with the given id. Id 0 is the null string.
func (p *StringPool) Get(id uint32) (string, bool) {
	if id == 0 {
		return "", true
	}
	if id > uint32(len(p.entries)) {
		return "", false
	}
	return p.entries[id-1].text, true
}

// RefCount returns the number of references the pool records for id.
func (p *StringPool) RefCount(id uint32) uint32 {
	if id == 0 || id > uint32(len(p.entries)) {
		return 0
	}
	return p.entries[id-1].refcount
}

// Len returns the number of pool entries, excluding the null string.
func (p *StringPool) Len() int {
	return len(p.entries)
}

// Codepage returns the codepage the strings were decoded with.
func (p *StringPool) Codepage() int {
	return p.codepage
}

// RefSize returns the width of a string reference in table rows.
func (p *StringPool) RefSize() int {
	if p.longRefs {
		return 3
	}
	return 2
}

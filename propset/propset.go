// Package propset decodes OLE property set streams such as
// \x05SummaryInformation.
package propset

// https://docs.microsoft.com/en-us/openspecs/windows_protocols/ms-oleps/bf7aeae8-c47a-4939-9f45-700158dac3bc

import (
	"encoding/binary"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/codepage"
	"github.com/msitools/msiparser/internal/log"
)

// FMTIDSummaryInformation identifies the summary information section.
var FMTIDSummaryInformation = uuid.MustParse("f29f85e0-4ff9-1068-ab91-08002b27b3d9")

// PIDCodepage is the property holding the codepage of a section's strings.
const PIDCodepage uint32 = 1

const (
	setHeaderSize     = 28
	sectionHeaderSize = 20
)

// PropertySet is a decoded property set stream.
type PropertySet struct {
	Version  uint16
	OSVer    uint32
	CLSID    uuid.UUID
	Sections []*Section
}

// Section holds the properties of one format id.
type Section struct {
	FMTID    uuid.UUID
	Codepage int

	props map[uint32]Value
	ids   []uint32
}

// Get returns the property with the given id.
func (s *Section) Get(id uint32) (Value, bool) {
	v, ok := s.props[id]
	return v, ok
}

// IDs returns the ids of the decoded properties in ascending order.
func (s *Section) IDs() []uint32 {
	return s.ids
}

// Section returns the first section with the given format id.
func (p *PropertySet) Section(fmtid uuid.UUID) (*Section, bool) {
	for _, s := range p.Sections {
		if s.FMTID == fmtid {
			return s, true
		}
	}
	return nil, false
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(msiparser.ErrMalformedPropertySet, "propset: "+format, args...)
}

// GUIDFromBytes converts a GUID stored in its mixed-endian Windows layout.
func GUIDFromBytes(b []byte) uuid.UUID {
	var u uuid.UUID
	le, be := binary.LittleEndian, binary.BigEndian
	be.PutUint32(u[0:], le.Uint32(b[0:]))
	be.PutUint16(u[4:], le.Uint16(b[4:]))
	be.PutUint16(u[6:], le.Uint16(b[6:]))
	copy(u[8:], b[8:16])
	return u
}

// Parse decodes a property set stream. Properties of unsupported types are
// skipped; offsets or sizes that do not fit the stream fail with
// ErrMalformedPropertySet.
func Parse(data []byte) (*PropertySet, error) {
	le := binary.LittleEndian
	if len(data) < setHeaderSize {
		return nil, malformed("stream of %d bytes is too short", len(data))
	}
	if bom := le.Uint16(data); bom != 0xFFFE {
		return nil, malformed("invalid byte order mark 0x%04x", bom)
	}
	ps := &PropertySet{
		Version: le.Uint16(data[2:]),
		OSVer:   le.Uint32(data[4:]),
		CLSID:   GUIDFromBytes(data[8:24]),
	}
	if ps.Version > 1 {
		return nil, malformed("unsupported version %d", ps.Version)
	}
	count := uint64(le.Uint32(data[24:]))
	if setHeaderSize+count*sectionHeaderSize > uint64(len(data)) {
		return nil, malformed("%d sections do not fit the stream", count)
	}

	for i := uint64(0); i < count; i++ {
		hdr := data[setHeaderSize+i*sectionHeaderSize:]
		offset := le.Uint32(hdr[16:])
		s, err := parseSection(data, offset)
		if err != nil {
			return nil, errors.Wrapf(err, "section %d", i)
		}
		s.FMTID = GUIDFromBytes(hdr[:16])
		ps.Sections = append(ps.Sections, s)
	}
	return ps, nil
}

func parseSection(data []byte, offset uint32) (*Section, error) {
	le := binary.LittleEndian
	if uint64(offset)+8 > uint64(len(data)) {
		return nil, malformed("section offset %d beyond stream", offset)
	}
	size := le.Uint32(data[offset:])
	if uint64(offset)+uint64(size) > uint64(len(data)) || size < 8 {
		return nil, malformed("section size %d does not fit the stream", size)
	}
	sec := data[offset : offset+size]
	count := uint64(le.Uint32(sec[4:]))
	if 8+count*8 > uint64(len(sec)) {
		return nil, malformed("%d properties do not fit the section", count)
	}

	type slot struct {
		id, offs uint32
	}
	slots := make([]slot, count)
	for i := range slots {
		slots[i] = slot{le.Uint32(sec[8+i*8:]), le.Uint32(sec[12+i*8:])}
		if uint64(slots[i].offs)+4 > uint64(len(sec)) {
			return nil, malformed("property %d offset %d beyond section", slots[i].id, slots[i].offs)
		}
	}

	s := &Section{Codepage: codepage.Default, props: make(map[uint32]Value, count)}

	// strings depend on the codepage, so it is read first
	for _, sl := range slots {
		if sl.id != PIDCodepage {
			continue
		}
		v, err := decodeValue(sec[sl.offs:], codepage.Default)
		if err != nil {
			return nil, errors.Wrap(err, "codepage property")
		}
		if n, ok := v.Int(); ok {
			// stored as VT_I2, so 65001 shows up negative
			s.Codepage = int(uint16(n))
		}
	}

	for _, sl := range slots {
		if sl.id == 0 {
			// dictionary
			continue
		}
		v, err := decodeValue(sec[sl.offs:], s.Codepage)
		if err != nil {
			return nil, errors.Wrapf(err, "property %d", sl.id)
		}
		if v.Kind == KindEmpty {
			log.Debug("skipping property", map[string]interface{}{
				"property": sl.id,
				"type":     v.Type,
			})
			continue
		}
		if _, dup := s.props[sl.id]; !dup {
			s.ids = append(s.ids, sl.id)
		}
		s.props[sl.id] = v
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s, nil
}

func decodeValue(b []byte, cp int) (Value, error) {
	le := binary.LittleEndian
	vt := le.Uint16(b)
	v := Value{Type: vt}
	body := b[4:]
	need := func(n uint64) error {
		if n > uint64(len(body)) {
			return malformed("value of type %d needs %d bytes, %d left", vt, n, len(body))
		}
		return nil
	}

	switch vt {
	case VTI2:
		if err := need(2); err != nil {
			return v, err
		}
		v.Kind, v.i = KindInt, int64(int16(le.Uint16(body)))
	case VTUI2:
		if err := need(2); err != nil {
			return v, err
		}
		v.Kind, v.i = KindInt, int64(le.Uint16(body))
	case VTI4, VTInt:
		if err := need(4); err != nil {
			return v, err
		}
		v.Kind, v.i = KindInt, int64(int32(le.Uint32(body)))
	case VTUI4, VTUInt:
		if err := need(4); err != nil {
			return v, err
		}
		v.Kind, v.i = KindInt, int64(le.Uint32(body))
	case VTI8, VTUI8:
		if err := need(8); err != nil {
			return v, err
		}
		v.Kind, v.i = KindInt, int64(le.Uint64(body))
	case VTBool:
		if err := need(2); err != nil {
			return v, err
		}
		v.Kind, v.i = KindBool, int64(le.Uint16(body))
	case VTLPStr:
		if err := need(4); err != nil {
			return v, err
		}
		n := uint64(le.Uint32(body))
		if err := need(4 + n); err != nil {
			return v, err
		}
		raw := body[4 : 4+n]
		if cp == codepage.UTF16LE {
			v.s = trimNul(codepage.Decode(cp, raw))
		} else {
			v.s = codepage.Decode(cp, cutNul(raw))
		}
		v.Kind = KindString
	case VTLPWStr:
		if err := need(4); err != nil {
			return v, err
		}
		n := uint64(le.Uint32(body)) * 2
		if err := need(4 + n); err != nil {
			return v, err
		}
		v.Kind, v.s = KindString, trimNul(codepage.Decode(codepage.UTF16LE, body[4:4+n]))
	case VTFileTime:
		if err := need(8); err != nil {
			return v, err
		}
		v.Kind, v.ft = KindFileTime, le.Uint64(body)
	case VTCLSID:
		if err := need(16); err != nil {
			return v, err
		}
		v.Kind, v.guid = KindGUID, GUIDFromBytes(body[:16])
	case VTBlob:
		if err := need(4); err != nil {
			return v, err
		}
		n := uint64(le.Uint32(body))
		if err := need(4 + n); err != nil {
			return v, err
		}
		v.Kind, v.blob = KindBlob, append([]byte(nil), body[4:4+n]...)
	}
	return v, nil
}

func cutNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func trimNul(s string) string {
	for i, r := range s {
		if r == 0 {
			return s[:i]
		}
	}
	return s
}

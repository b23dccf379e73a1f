package propset

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/internal/cfbtest"
)

func TestFileTime(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 800, time.UTC)
	assert.True(t, ConvertFileTime(FileTime(ts)).Equal(ts))
	assert.Equal(t, time.Date(1601, 1, 1, 0, 0, 0, 100, time.UTC), ConvertFileTime(1))
	assert.True(t, ConvertFileTime(0).IsZero())
	assert.Equal(t, uint64(116444736000000000), FileTime(time.Unix(0, 0)))
}

func TestParseSummary(t *testing.T) {
	created := FileTime(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC))
	data := cfbtest.PropertySet(
		cfbtest.Property{ID: 1, Type: VTI2, Value: int16(1251)},
		cfbtest.Property{ID: 2, Type: VTLPStr, Value: []byte{0xCF, 0xF0, 0xE8}},
		cfbtest.Property{ID: 4, Type: VTLPWStr, Value: "Wide Author"},
		cfbtest.Property{ID: 12, Type: VTFileTime, Value: created},
		cfbtest.Property{ID: 14, Type: VTI4, Value: int32(500)},
		cfbtest.Property{ID: 19, Type: VTI4, Value: int32(-2)},
		cfbtest.Property{ID: 20, Type: VTBool, Value: true},
		cfbtest.Property{ID: 21, Type: 0x1003, Value: int32(7)},
	)

	ps, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, ps.Sections, 1)

	s, ok := ps.Section(FMTIDSummaryInformation)
	require.True(t, ok)
	assert.Equal(t, 1251, s.Codepage)
	assert.Equal(t, []uint32{1, 2, 4, 12, 14, 19, 20}, s.IDs())

	title, _ := s.Get(2)
	str, ok := title.Str()
	assert.True(t, ok)
	assert.Equal(t, "При", str)

	author, _ := s.Get(4)
	assert.Equal(t, "Wide Author", author.String())

	ct, _ := s.Get(12)
	when, ok := ct.Time()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), when)

	n, _ := s.Get(19)
	i, ok := n.Int()
	assert.True(t, ok)
	assert.EqualValues(t, -2, i)

	b, _ := s.Get(20)
	flag, ok := b.Bool()
	assert.True(t, ok)
	assert.True(t, flag)

	_, ok = s.Get(21)
	assert.False(t, ok, "vector types are skipped")
	_, ok = s.Get(3)
	assert.False(t, ok)
}

func TestParseGUIDAndBlob(t *testing.T) {
	var clsid [16]byte
	copy(clsid[:], cfbtest.SummaryFMTID)
	data := cfbtest.PropertySet(
		cfbtest.Property{ID: 2, Type: VTCLSID, Value: clsid},
		cfbtest.Property{ID: 3, Type: VTBlob, Value: []byte{1, 2, 3, 4, 5}},
	)
	ps, err := Parse(data)
	require.NoError(t, err)
	s := ps.Sections[0]

	v, _ := s.Get(2)
	assert.Equal(t, KindGUID, v.Kind)
	g, ok := v.GUID()
	assert.True(t, ok)
	assert.Equal(t, FMTIDSummaryInformation, g)
	_, ok = v.Blob()
	assert.False(t, ok)

	v, _ = s.Get(3)
	blob, ok := v.Blob()
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, blob)
	assert.Equal(t, "0102030405", v.String())
	_, ok = v.GUID()
	assert.False(t, ok)
}

func TestParseCodepageOrder(t *testing.T) {
	// the codepage applies even when it is stored after the strings
	data := cfbtest.PropertySet(
		cfbtest.Property{ID: 3, Type: VTLPStr, Value: []byte{'c', 'a', 'f', 0xE9}},
		cfbtest.Property{ID: 1, Type: VTI2, Value: int16(-535)},
	)
	ps, err := Parse(data)
	require.NoError(t, err)
	s := ps.Sections[0]
	assert.Equal(t, 65001, s.Codepage)
	v, _ := s.Get(3)
	// read as UTF-8, not windows-1252
	assert.NotEqual(t, "café", v.String())

	data = cfbtest.PropertySet(
		cfbtest.Property{ID: 3, Type: VTLPStr, Value: []byte{'c', 'a', 'f', 0xE9}},
	)
	ps, err = Parse(data)
	require.NoError(t, err)
	v, _ = ps.Sections[0].Get(3)
	assert.Equal(t, "café", v.String())
	assert.Equal(t, 1252, ps.Sections[0].Codepage)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte{0xFE, 0xFF})
	assert.ErrorIs(t, err, msiparser.ErrMalformedPropertySet)

	good := cfbtest.PropertySet(cfbtest.Property{ID: 2, Type: VTLPStr, Value: "Title"})

	bad := append([]byte(nil), good...)
	bad[0] = 0
	_, err = Parse(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedPropertySet)

	// section offset past the end
	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(bad[44:], 5000)
	_, err = Parse(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedPropertySet)

	// section size past the end
	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(bad[48:], 5000)
	_, err = Parse(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedPropertySet)

	// string length past the end of the section
	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(bad[48+16+4:], 5000)
	_, err = Parse(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedPropertySet)

	// too many sections
	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(bad[24:], 1000)
	_, err = Parse(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedPropertySet)
}

func TestGUIDFromBytes(t *testing.T) {
	assert.Equal(t, FMTIDSummaryInformation, GUIDFromBytes(cfbtest.SummaryFMTID))
}

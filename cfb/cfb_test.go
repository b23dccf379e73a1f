package cfb

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/internal/cfbtest"
)

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

func sample() *cfbtest.Builder {
	return cfbtest.New().
		AddStream("Empty", nil).
		AddStream("Small", pattern(10, 1)).
		AddStream("Medium", pattern(1000, 2)).
		AddStream("AlmostBig", pattern(4095, 3)).
		AddStream("Big", pattern(4096, 4)).
		AddStream("Bigger", pattern(5000, 5)).
		AddStream("\x05SummaryInformation", pattern(200, 6)).
		AddStream("Storage/Inner", pattern(70, 7)).
		AddStream("Storage/Deeper/Leaf", pattern(9000, 8)).
		AddStorage("Vacant")
}

func TestHeader(t *testing.T) {
	for _, version := range []int{3, 4} {
		b := sample()
		b.Version = version
		data, _ := b.Build()

		d, err := New(data)
		require.NoError(t, err)
		assert.Equal(t, version, d.Version())
		assert.Equal(t, 1<<(9+3*(version-3)), d.SectorSize())
		assert.Equal(t, TypeRoot, d.Root().Type)
		assert.Equal(t, "Root Entry", d.Root().Name)
	}
}

func TestReadStreams(t *testing.T) {
	b := sample()
	data, _ := b.Build()
	d, err := New(data)
	require.NoError(t, err)

	want := map[string][]byte{
		"Empty":                  {},
		"Small":                  pattern(10, 1),
		"Medium":                 pattern(1000, 2),
		"AlmostBig":              pattern(4095, 3),
		"Big":                    pattern(4096, 4),
		"Bigger":                 pattern(5000, 5),
		"\x05SummaryInformation": pattern(200, 6),
		"Storage/Inner":          pattern(70, 7),
		"Storage/Deeper/Leaf":    pattern(9000, 8),
	}
	names, err := d.List()
	require.NoError(t, err)
	assert.Len(t, names, len(want))

	for name, content := range want {
		got, err := d.ReadStream(name)
		require.NoError(t, err, name)
		e, ok := d.Entry(name)
		require.True(t, ok)
		assert.Equal(t, e.Size, uint64(len(got)), name)
		assert.True(t, bytes.Equal(content, got), name)

		r, err := d.Open(name)
		require.NoError(t, err)
		all, err := ioutil.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, len(content), len(all))
	}

	_, err = d.ReadStream("Missing")
	assert.ErrorIs(t, err, msiparser.ErrStreamNotFound)
	_, err = d.ReadStream("Storage")
	assert.ErrorIs(t, err, msiparser.ErrStreamNotFound)
	assert.True(t, d.Exists("Vacant"))
	assert.True(t, d.Exists("/Storage/Deeper/"))
}

func TestTreeOrder(t *testing.T) {
	data, _ := sample().Build()
	d, err := New(data)
	require.NoError(t, err)

	var names []string
	for _, e := range d.Children(d.Root()) {
		names = append(names, e.Name)
	}
	// shorter names first, then case-insensitive order
	assert.Equal(t, []string{"Big", "Empty", "Small", "Bigger", "Medium", "Vacant", "Storage", "AlmostBig", "\x05SummaryInformation"}, names)

	var paths []string
	require.NoError(t, d.Walk(func(e *DirEntry) error {
		paths = append(paths, e.Path)
		return nil
	}))
	assert.Equal(t, []string{
		"Big", "Empty", "Small", "Bigger", "Medium", "Vacant",
		"Storage", "Storage/Inner", "Storage/Deeper", "Storage/Deeper/Leaf",
		"AlmostBig", "\x05SummaryInformation",
	}, paths)

	var streams []string
	for _, e := range d.Streams() {
		streams = append(streams, e.Path)
	}
	assert.Equal(t, []string{
		"Big", "Empty", "Small", "Bigger", "Medium",
		"Storage/Inner", "Storage/Deeper/Leaf",
		"AlmostBig", "\x05SummaryInformation",
	}, streams)

	leaf, ok := d.Entry("Storage/Deeper/Leaf")
	require.True(t, ok)
	parent, ok := d.Entry("Storage/Deeper")
	require.True(t, ok)
	assert.Equal(t, parent.ID, leaf.Parent)
	assert.Equal(t, TypeStorage, parent.Type)
}

func TestChainSectorCount(t *testing.T) {
	data, layout := sample().Build()
	d, err := New(data)
	require.NoError(t, err)

	require.NoError(t, d.Walk(func(e *DirEntry) error {
		if !e.IsStream() || e.Size == 0 {
			return nil
		}
		var c *Chain
		secSize := uint64(d.SectorSize())
		if layout.Mini[e.Path] {
			c = d.MiniChain(e.StartSector, e.Size)
			secSize = 64
		} else {
			c = d.Chain(e.StartSector, e.Size)
		}
		n, total := 0, 0
		for c.Next() {
			n++
			total += len(c.Sector())
		}
		assert.NoError(t, c.Err())
		assert.Equal(t, int((e.Size+secSize-1)/secSize), n, e.Path)
		assert.Equal(t, int(e.Size), total, e.Path)
		return nil
	}))
}

func TestChainCycle(t *testing.T) {
	data, layout := sample().Build()
	start := layout.Start["Storage/Deeper/Leaf"]
	layout.PatchFAT(data, start+2, start)

	d, err := New(data)
	require.NoError(t, err)
	_, err = d.ReadStream("Storage/Deeper/Leaf")
	assert.ErrorIs(t, err, msiparser.ErrChainCycle)

	// other streams are unaffected
	_, err = d.ReadStream("Bigger")
	assert.NoError(t, err)

	data, layout = sample().Build()
	mstart := layout.Start["Medium"]
	layout.PatchMiniFAT(data, mstart+3, mstart+1)
	d, err = New(data)
	require.NoError(t, err)
	_, err = d.ReadStream("Medium")
	assert.ErrorIs(t, err, msiparser.ErrChainCycle)
}

func TestChainTruncated(t *testing.T) {
	data, layout := sample().Build()
	start := layout.Start["Bigger"]
	layout.PatchFAT(data, start+3, cfbtest.EndOfChain)

	d, err := New(data)
	require.NoError(t, err)
	_, err = d.ReadStream("Bigger")
	assert.ErrorIs(t, err, msiparser.ErrStreamTruncated)
	_, err = d.ReadStream("Big")
	assert.NoError(t, err)
}

func TestChainOutOfRange(t *testing.T) {
	data, layout := sample().Build()
	start := layout.Start["Bigger"]
	layout.PatchFAT(data, start, 50000)

	d, err := New(data)
	require.NoError(t, err)
	_, err = d.ReadStream("Bigger")
	assert.ErrorIs(t, err, msiparser.ErrInvalidContainer)
}

func TestDIFAT(t *testing.T) {
	for _, tc := range []struct {
		version, fatSectors, difatSectors int
	}{
		{3, 300, 2},
		{4, 200, 1},
	} {
		b := sample()
		b.Version = tc.version
		b.MinFATSectors = tc.fatSectors
		data, layout := b.Build()
		require.Len(t, layout.FATSectors, tc.fatSectors)
		require.Len(t, layout.DIFATSectors, tc.difatSectors)

		d, err := New(data)
		require.NoError(t, err)
		got, err := d.ReadStream("Storage/Deeper/Leaf")
		require.NoError(t, err)
		assert.Equal(t, pattern(9000, 8), got)
		got, err = d.ReadStream("Medium")
		require.NoError(t, err)
		assert.Equal(t, pattern(1000, 2), got)
	}

	b := sample()
	b.MinFATSectors = 300
	data, layout := b.Build()
	next := layout.SectorOffset(layout.DIFATSectors[0]) + layout.SectorSize - 4

	bad := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(bad[next:], layout.DIFATSectors[0])
	_, err := New(bad)
	assert.ErrorIs(t, err, msiparser.ErrChainCycle)

	bad = append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(bad[next:], cfbtest.EndOfChain)
	_, err = New(bad)
	assert.ErrorIs(t, err, msiparser.ErrInvalidContainer)
	assert.Contains(t, err.Error(), "DIFAT ends")
}

func TestTruncatedFile(t *testing.T) {
	b := cfbtest.New().AddStream("Payload", pattern(6000, 9))
	data, _ := b.Build()
	// the payload occupies the last sectors of the file
	d, err := New(data[:len(data)-300])
	require.NoError(t, err)
	_, err = d.ReadStream("Payload")
	assert.ErrorIs(t, err, msiparser.ErrStreamTruncated)

	// a short final sector is fine when the stream ends inside it
	b = cfbtest.New().AddStream("Payload", pattern(5000, 9))
	data, _ = b.Build()
	d, err = New(data[:len(data)-100])
	require.NoError(t, err)
	got, err := d.ReadStream("Payload")
	require.NoError(t, err)
	assert.Len(t, got, 5000)
}

func TestInvalidHeader(t *testing.T) {
	data, _ := sample().Build()

	bad := append([]byte(nil), data...)
	bad[0] = 0
	_, err := New(bad)
	assert.ErrorIs(t, err, msiparser.ErrInvalidContainer)
	assert.ErrorIs(t, err, msiparser.ErrNotInFormat)

	bad = append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(bad[30:], 10)
	_, err = New(bad)
	assert.ErrorIs(t, err, msiparser.ErrInvalidContainer)
	assert.NotErrorIs(t, err, msiparser.ErrNotInFormat)

	bad = append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(bad[26:], 5)
	_, err = New(bad)
	assert.ErrorIs(t, err, msiparser.ErrInvalidContainer)

	_, err = New(data[:100])
	assert.ErrorIs(t, err, msiparser.ErrNotInFormat)
}

func TestMalformedDirectory(t *testing.T) {
	data, layout := sample().Build()

	bad := append([]byte(nil), data...)
	bad[layout.EntryOffset(layout.ID["Small"])+66] = 7
	_, err := New(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedDirectory)

	bad = append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(bad[layout.EntryOffset(layout.ID["Small"])+64:], 66)
	_, err = New(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedDirectory)

	// a sibling link back into the tree
	bad = append([]byte(nil), data...)
	id := layout.ID["Storage/Inner"]
	binary.LittleEndian.PutUint32(bad[layout.EntryOffset(id)+68:], id)
	_, err = New(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedDirectory)

	// an unused entry in the sibling tree with dangling links
	bad = append([]byte(nil), data...)
	offs := layout.EntryOffset(layout.ID["Small"])
	bad[offs+66] = byte(TypeUnknown)
	binary.LittleEndian.PutUint32(bad[offs+68:], 0x00FFFFFF)
	binary.LittleEndian.PutUint32(bad[offs+72:], 0x00FFFFFF)
	assert.NotPanics(t, func() {
		_, err = New(bad)
	})
	assert.ErrorIs(t, err, msiparser.ErrMalformedDirectory)

	bad = append([]byte(nil), data...)
	bad[layout.EntryOffset(0)+66] = byte(TypeStorage)
	_, err = New(bad)
	assert.ErrorIs(t, err, msiparser.ErrMissingRoot)

	bad = append([]byte(nil), data...)
	bad[layout.EntryOffset(layout.ID["Vacant"])+66] = byte(TypeRoot)
	_, err = New(bad)
	assert.ErrorIs(t, err, msiparser.ErrMalformedDirectory)
}

func TestSliceReader(t *testing.T) {
	s := &SliceReader{Data: [][]byte{[]byte("abc"), []byte("de"), []byte("fghi")}}
	assert.EqualValues(t, 9, s.Len())

	buf := make([]byte, 4)
	n, err := io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]))

	pos, err := s.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.EqualValues(t, 7, pos)
	rest, err := ioutil.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(rest))

	_, err = s.Seek(3, io.SeekStart)
	require.NoError(t, err)
	pos, err = s.Seek(1, io.SeekCurrent)
	require.NoError(t, err)
	assert.EqualValues(t, 4, pos)
	assert.Equal(t, "efghi", string(s.Bytes()))

	_, err = s.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	data, _ := sample().Build()
	fn := filepath.Join(t.TempDir(), "sample.cfb")
	require.NoError(t, ioutil.WriteFile(fn, data, 0o644))

	d, err := Open(fn)
	require.NoError(t, err)
	got, err := d.ReadStream("Storage/Deeper/Leaf")
	require.NoError(t, err)
	assert.Equal(t, pattern(9000, 8), got)
	require.NoError(t, d.Close())

	empty := filepath.Join(t.TempDir(), "empty.cfb")
	require.NoError(t, ioutil.WriteFile(empty, nil, 0o644))
	_, err = Open(empty)
	assert.ErrorIs(t, err, msiparser.ErrNotInFormat)

	_, err = Open(filepath.Join(t.TempDir(), "missing.cfb"))
	assert.True(t, os.IsNotExist(err))
}

func TestSource(t *testing.T) {
	data, _ := sample().Build()
	fn := filepath.Join(t.TempDir(), "sample.cfb")
	require.NoError(t, ioutil.WriteFile(fn, data, 0o644))

	src, err := msiparser.Open(fn)
	require.NoError(t, err)
	defer src.Close()

	tables, err := src.List()
	require.NoError(t, err)
	assert.Equal(t, []string{StreamsTable}, tables)

	c, err := src.Get(StreamsTable)
	require.NoError(t, err)
	assert.Equal(t, []string{"Path", "Name", "Size"}, c.Columns())
	assert.False(t, c.IsEmpty())

	found := false
	for c.Next() {
		var path, name string
		var size int64
		require.NoError(t, c.Scan(&path, &name, &size))
		if path == "\x05SummaryInformation" {
			found = true
			assert.Equal(t, "SummaryInformation", name)
			assert.EqualValues(t, 200, size)
		}
	}
	assert.True(t, found)
	assert.NoError(t, c.Err())

	_, err = src.Get("Nope")
	assert.ErrorIs(t, err, msiparser.ErrStreamNotFound)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "SummaryInformation", FileName("\x05SummaryInformation"))
	assert.Equal(t, "a_b_c", FileName("a/b\\c"))
	assert.Equal(t, "_..", FileName(".."))
	assert.Equal(t, "_.", FileName("."))
	assert.Equal(t, "_", FileName("\x01"))
	assert.Equal(t, "cab 1.cab", FileName("cab 1.cab"))
	assert.Equal(t, "Caf", FileName("Café"))
}

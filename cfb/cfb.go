// Package cfb implements the Microsoft Compound File Binary File Format.
package cfb

// https://docs.microsoft.com/en-us/openspecs/windows_protocols/ms-cfb/53989ce4-7b05-4f8d-829b-d08d6148375b
// Note for myself:
//   Storage = Directory
//   Stream = File

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/internal/log"
)

const (
	secFree       uint32 = 0xFFFFFFFF // FREESECT
	secEndOfChain uint32 = 0xFFFFFFFE // ENDOFCHAIN
	secFAT        uint32 = 0xFFFFFFFD // FATSECT
	secDIFAT      uint32 = 0xFFFFFFFC // DIFSECT
	secReserved   uint32 = 0xFFFFFFFB
	secMaxRegular uint32 = 0xFFFFFFFA // MAXREGSECT

	noStream uint32 = 0xFFFFFFFF // NOSTREAM
)

const (
	signature        uint64 = 0xe11ab1a1e011cfd0
	headerSize              = 512
	dirEntrySize            = 128
	numHeaderDIFAT          = 109
	miniSectorShift         = 6
	miniStreamCutoff        = 4096
)

// Header of the Compound File MUST be at the beginning of the file (offset 0).
type header struct {
	Signature                    uint64      // Identification signature for the compound file structure, and MUST be set to the value 0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1.
	ClassID                      [2]uint64   // Reserved and unused class ID that MUST be set to all zeroes (CLSID_NULL).
	MinorVersion                 uint16      // Version number for nonbreaking changes. This field SHOULD be set to 0x003E if the major version field is either 0x0003 or 0x0004.
	MajorVersion                 uint16      // Version number for breaking changes. This field MUST be set to either 0x0003 (version 3) or 0x0004 (version 4).
	ByteOrder                    uint16      // This field MUST be set to 0xFFFE. This field is a byte order mark for all integer fields, specifying little-endian byte order.
	SectorShift                  uint16      // This field MUST be set to 0x0009, or 0x000c, depending on the Major Version field. This field specifies the sector size of the compound file as a power of 2.
	MiniSectorShift              uint16      // This field MUST be set to 0x0006. This field specifies the sector size of the Mini Stream as a power of 2. The sector size of the Mini Stream MUST be 64 bytes.
	Reserved1                    [6]byte     // This field MUST be set to all zeroes.
	NumDirectorySectors          int32       // This integer field contains the count of the number of directory sectors in the compound file.
	NumFATSectors                int32       // This integer field contains the count of the number of FAT sectors in the compound file.
	FirstDirectorySectorLocation uint32      // This integer field contains the starting sector number for the directory stream.
	TransactionSignature         int32       // This integer field MAY contain a sequence number that is incremented every time the compound file is saved by an implementation that supports file transactions.
	MiniStreamCutoffSize         int32       // This integer field MUST be set to 0x00001000. Any user-defined data stream that is greater than or equal to this cutoff size must be allocated as normal sectors from the FAT.
	FirstMiniFATSectorLocation   uint32      // This integer field contains the starting sector number for the mini FAT.
	NumMiniFATSectors            int32       // This integer field contains the count of the number of mini FAT sectors in the compound file.
	FirstDIFATSectorLocation     uint32      // This integer field contains the starting sector number for the DIFAT.
	NumDIFATSectors              int32       // This integer field contains the count of the number of DIFAT sectors in the compound file.
	DIFAT                        [109]uint32 // This array of 32-bit integer fields contains the first 109 FAT sector locations of the compound file.
}

// Document represents a Compound File Binary Format document.
// A loaded Document is never modified, so it may be read from many
// goroutines at once.
type Document struct {
	// the entire file, either mapped or supplied by the caller
	data []byte
	mm   mmap.MMap
	file *os.File

	// pre-parsed info
	header     *header
	sectorSize int
	numSectors uint32

	// lookup tables for all the sectors
	fat     []uint32
	minifat []uint32

	dir   []*DirEntry
	root  uint32
	order []uint32
	paths map[string]uint32

	ministream    []byte
	ministreamErr error
}

func notCFB(msg string) error {
	return errors.Wrap(msiparser.WrapErr(msiparser.ErrInvalidContainer, msiparser.ErrNotInFormat), "cfb: "+msg)
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(msiparser.ErrInvalidContainer, "cfb: "+format, args...)
}

func (d *Document) load() error {
	if len(d.data) < headerSize {
		return notCFB("file is smaller than a header")
	}

	h := &header{}
	err := binary.Read(bytes.NewReader(d.data[:headerSize]), binary.LittleEndian, h)
	if err != nil {
		return errors.Wrap(err, "cfb: reading header")
	}
	if h.Signature != signature {
		return notCFB("invalid signature")
	}
	if h.ByteOrder != 0xFFFE {
		return invalid("invalid byte order mark 0x%04x", h.ByteOrder)
	}
	switch h.MajorVersion {
	case 3:
		if h.SectorShift != 9 {
			return invalid("version 3 requires 512 byte sectors (shift %d)", h.SectorShift)
		}
	case 4:
		if h.SectorShift != 12 {
			return invalid("version 4 requires 4096 byte sectors (shift %d)", h.SectorShift)
		}
	default:
		return invalid("unknown major version %d", h.MajorVersion)
	}
	if h.MinorVersion != 0x3E {
		log.Debug("unexpected minor version", map[string]interface{}{"minor_version": h.MinorVersion})
	}
	if h.MiniSectorShift != miniSectorShift {
		return invalid("invalid mini sector shift %d", h.MiniSectorShift)
	}
	if h.MiniStreamCutoffSize != miniStreamCutoff {
		return invalid("invalid mini stream cutoff %d", h.MiniStreamCutoffSize)
	}
	d.header = h
	d.sectorSize = 1 << h.SectorShift
	if len(d.data) <= d.sectorSize {
		return invalid("file has no sectors")
	}
	d.numSectors = uint32((len(d.data) - d.sectorSize + d.sectorSize - 1) / d.sectorSize)

	// step 1: read the DIFAT sector list and the FAT
	if err = d.loadFAT(); err != nil {
		return err
	}

	// step 2: read the mini FAT
	if err = d.loadMiniFAT(); err != nil {
		return err
	}

	// step 3: read the Directory Entries and build the storage tree
	if err = d.loadDirectory(); err != nil {
		return err
	}
	if err = d.buildTree(); err != nil {
		return err
	}

	// step 4: materialize the mini stream. A broken mini stream only
	// affects the small streams stored inside it.
	d.loadMiniStream()
	return nil
}

// sector returns the payload of a regular sector. The last sector of a
// file may be shorter than the sector size.
func (d *Document) sector(sid uint32) ([]byte, error) {
	if sid >= d.numSectors {
		return nil, invalid("sector %d out of range (%d sectors)", sid, d.numSectors)
	}
	offs := int64(sid+1) << d.header.SectorShift
	end := offs + int64(d.sectorSize)
	if end > int64(len(d.data)) {
		end = int64(len(d.data))
	}
	return d.data[offs:end], nil
}

func (d *Document) fullSector(sid uint32) ([]byte, error) {
	sec, err := d.sector(sid)
	if err != nil {
		return nil, err
	}
	if len(sec) < d.sectorSize {
		return nil, invalid("sector %d is truncated", sid)
	}
	return sec, nil
}

func (d *Document) loadFAT() error {
	h := d.header
	le := binary.LittleEndian
	numFAT := int(h.NumFATSectors)
	if numFAT < 0 || uint32(numFAT) > d.numSectors {
		return invalid("FAT sector count %d exceeds %d sectors", numFAT, d.numSectors)
	}
	numFATentries := d.sectorSize / 4

	fatSectors := make([]uint32, 0, numFAT)
	for i := 0; i < numHeaderDIFAT && len(fatSectors) < numFAT; i++ {
		fatSectors = append(fatSectors, h.DIFAT[i])
	}

	// DIFAT sectors hold numFATentries-1 FAT locations and a pointer to
	// the next DIFAT sector.
	visited := make(map[uint32]struct{})
	sid := h.FirstDIFATSectorLocation
	for len(fatSectors) < numFAT {
		if sid == secEndOfChain || sid == secFree {
			return invalid("DIFAT ends after %d of %d FAT sectors", len(fatSectors), numFAT)
		}
		if _, ok := visited[sid]; ok {
			return errors.Wrapf(msiparser.ErrChainCycle, "cfb: DIFAT sector %d revisited", sid)
		}
		visited[sid] = struct{}{}
		log.Debug("reading DIFAT sector", map[string]interface{}{log.KeySector: sid})
		difatSector, err := d.fullSector(sid)
		if err != nil {
			return err
		}
		for i := 0; i < numFATentries-1 && len(fatSectors) < numFAT; i++ {
			fatSectors = append(fatSectors, le.Uint32(difatSector[i*4:]))
		}
		// chain the next DIFAT sector
		sid = le.Uint32(difatSector[(numFATentries-1)*4:])
	}

	d.fat = make([]uint32, 0, numFATentries*numFAT)
	for _, fs := range fatSectors {
		sector, err := d.fullSector(fs)
		if err != nil {
			return errors.Wrap(err, "cfb: loading FAT")
		}
		for j := 0; j < numFATentries; j++ {
			d.fat = append(d.fat, le.Uint32(sector[j*4:]))
		}
	}
	return nil
}

func (d *Document) loadMiniFAT() error {
	h := d.header
	if h.NumMiniFATSectors <= 0 || h.FirstMiniFATSectorLocation == secEndOfChain {
		return nil
	}
	le := binary.LittleEndian
	c := d.chainAll(h.FirstMiniFATSectorLocation)
	for c.Next() {
		sector := c.Sector()
		if len(sector) < d.sectorSize {
			return invalid("mini FAT sector %d is truncated", c.ID())
		}
		for j := 0; j+4 <= len(sector); j += 4 {
			d.minifat = append(d.minifat, le.Uint32(sector[j:]))
		}
	}
	return errors.Wrap(c.Err(), "cfb: loading mini FAT")
}

func (d *Document) loadMiniStream() {
	root := d.dir[d.root]
	if root.Size == 0 {
		return
	}
	buf := make([]byte, 0, capHint(root.Size, len(d.data)))
	c := d.Chain(root.StartSector, root.Size)
	for c.Next() {
		buf = append(buf, c.Sector()...)
	}
	if err := c.Err(); err != nil {
		d.ministreamErr = errors.Wrap(err, "cfb: loading mini stream")
		log.Warning("mini stream is unreadable", map[string]interface{}{
			log.KeyError: err,
		})
		return
	}
	d.ministream = buf
}

// capHint bounds a preallocation by the amount of data available.
func capHint(size uint64, available int) int {
	if size > uint64(available) {
		return available
	}
	return int(size)
}

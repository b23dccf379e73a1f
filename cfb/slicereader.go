package cfb

import (
	"errors"
	"io"
)

// SliceReader reads a stream from the sector slices that make it up,
// without copying them.
type SliceReader struct {
	Data   [][]byte
	Index  uint
	Offset uint
}

// Len returns the total number of bytes in the stream.
func (s *SliceReader) Len() int64 {
	var n int64
	for _, d := range s.Data {
		n += int64(len(d))
	}
	return n
}

func (s *SliceReader) Read(b []byte) (int, error) {
	for s.Index < uint(len(s.Data)) && s.Offset >= uint(len(s.Data[s.Index])) {
		s.Offset = 0
		s.Index++
	}
	if s.Index >= uint(len(s.Data)) {
		return 0, io.EOF
	}
	n := copy(b, s.Data[s.Index][s.Offset:])
	s.Offset += uint(n)
	if s.Offset == uint(len(s.Data[s.Index])) {
		s.Offset = 0
		s.Index++
	}
	return n, nil
}

// Seek implements io.Seeker.
func (s *SliceReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos() + offset
	case io.SeekEnd:
		abs = s.Len() + offset
	default:
		return 0, errors.New("cfb: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("cfb: negative position")
	}

	s.Index, s.Offset = 0, 0
	rem := abs
	for s.Index < uint(len(s.Data)) && rem >= int64(len(s.Data[s.Index])) {
		rem -= int64(len(s.Data[s.Index]))
		s.Index++
	}
	if s.Index < uint(len(s.Data)) {
		s.Offset = uint(rem)
	}
	return abs, nil
}

func (s *SliceReader) pos() int64 {
	var n int64
	for i := uint(0); i < s.Index && i < uint(len(s.Data)); i++ {
		n += int64(len(s.Data[i]))
	}
	return n + int64(s.Offset)
}

// Bytes copies the remaining content into one slice.
func (s *SliceReader) Bytes() []byte {
	buf := make([]byte, 0, s.Len()-s.pos())
	if s.Index >= uint(len(s.Data)) {
		return buf
	}
	buf = append(buf, s.Data[s.Index][s.Offset:]...)
	for _, d := range s.Data[s.Index+1:] {
		buf = append(buf, d...)
	}
	return buf
}

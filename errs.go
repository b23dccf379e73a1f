package msiparser

import "errors"

// ErrInvalidScanType is returned by Scan for invalid arguments.
var ErrInvalidScanType = errors.New("msiparser: Scan only supports *bool, *int, *int32, *int64, *string, *interface{} arguments")

// ErrNotInFormat is used to auto-detect file types using the defined OpenFunc
// It is returned by OpenFunc when the code does not detect correct file formats.
var ErrNotInFormat = errors.New("msiparser: file is not in this format")

// ErrUnknownFormat is used when msiparser does not know how to open a file format.
var ErrUnknownFormat = errors.New("msiparser: file format is not known/supported")

// Container level errors abort the whole open.
var (
	// ErrInvalidContainer is returned for a bad header, an unsupported sector
	// size or a sector index beyond the end of the file.
	ErrInvalidContainer = errors.New("msiparser: invalid compound file")

	// ErrMalformedDirectory is returned for directory entries with an invalid
	// type, an over-long name or a sibling tree that revisits an entry.
	ErrMalformedDirectory = errors.New("msiparser: malformed directory")

	// ErrMissingRoot is returned when no root storage entry exists.
	ErrMissingRoot = errors.New("msiparser: missing root entry")
)

// Stream level errors are fatal for the affected stream only.
var (
	ErrChainCycle      = errors.New("msiparser: sector chain cycle")
	ErrStreamTruncated = errors.New("msiparser: stream truncated")
	ErrStreamNotFound  = errors.New("msiparser: stream not found")
)

// Table level errors are fatal for the affected table only.
var (
	ErrUnknownColumnType = errors.New("msiparser: unknown column type")
	ErrRowDecode         = errors.New("msiparser: row decode error")
)

// ErrStringPoolMismatch means the string pool lengths do not fit the string
// data. Nearly every value depends on the pool, so it aborts the open.
var ErrStringPoolMismatch = errors.New("msiparser: string pool does not match string data")

// ErrMalformedPropertySet is returned for property set streams whose offsets
// or sizes do not fit the stream.
var ErrMalformedPropertySet = errors.New("msiparser: malformed property set")

type errx struct {
	errs []error
}

func (e errx) Error() string {
	return e.errs[0].Error()
}

func (e errx) Is(target error) bool {
	return errors.Is(e.errs[0], target)
}

func (e errx) Unwrap() error {
	switch len(e.errs) {
	case 0, 1:
		return nil
	case 2:
		return e.errs[1]
	}
	return errx{errs: e.errs[1:]}
}

// WrapErr wraps a set of errors. The result reports the first error's
// message and matches every error in the set with errors.Is.
func WrapErr(e ...error) error {
	if len(e) == 1 {
		return e[0]
	}
	return errx{errs: e}
}

package propset

import "time"

// FILETIME counts 100 nanosecond intervals since January 1, 1601 (UTC).
const (
	ticksPerSecond = 10000000
	// seconds between 1601-01-01 and 1970-01-01
	epochDelta = 11644473600
)

// ConvertFileTime converts a FILETIME value to a time.Time. Zero means
// "not set" and converts to the zero time.
func ConvertFileTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	secs := int64(ft/ticksPerSecond) - epochDelta
	nsec := int64(ft%ticksPerSecond) * 100
	return time.Unix(secs, nsec).UTC()
}

// FileTime converts a time.Time back to a FILETIME value.
func FileTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	secs := uint64(t.Unix() + epochDelta)
	return secs*ticksPerSecond + uint64(t.Nanosecond()/100)
}

package msi

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/msitools/msiparser/codepage"
	"github.com/msitools/msiparser/propset"
)

// SummaryInformationStream is the property set stream holding package metadata.
const SummaryInformationStream = "\x05SummaryInformation"

// Summary information property ids.
const (
	PIDCodepage     uint32 = 1
	PIDTitle        uint32 = 2
	PIDSubject      uint32 = 3
	PIDAuthor       uint32 = 4
	PIDKeywords     uint32 = 5
	PIDComments     uint32 = 6
	PIDTemplate     uint32 = 7
	PIDLastSavedBy  uint32 = 8
	PIDRevision     uint32 = 9
	PIDLastPrinted  uint32 = 11
	PIDCreateTime   uint32 = 12
	PIDLastSaveTime uint32 = 13
	PIDPageCount    uint32 = 14
	PIDWordCount    uint32 = 15
	PIDCharCount    uint32 = 16
	PIDAppName      uint32 = 18
	PIDSecurity     uint32 = 19
)

// Summary gives typed access to the summary information of a package.
// Every accessor reports whether the property is present.
type Summary struct {
	section *propset.Section
}

func newSummary(ps *propset.PropertySet) *Summary {
	s := &Summary{}
	if ps == nil {
		return s
	}
	if sec, ok := ps.Section(propset.FMTIDSummaryInformation); ok {
		s.section = sec
	} else if len(ps.Sections) > 0 {
		s.section = ps.Sections[0]
	}
	return s
}

// Get returns a raw property value.
func (s *Summary) Get(pid uint32) (propset.Value, bool) {
	if s.section == nil {
		return propset.Value{}, false
	}
	return s.section.Get(pid)
}

func (s *Summary) strProp(pid uint32) (string, bool) {
	v, ok := s.Get(pid)
	if !ok {
		return "", false
	}
	return v.Str()
}

func (s *Summary) intProp(pid uint32) (int32, bool) {
	v, ok := s.Get(pid)
	if !ok {
		return 0, false
	}
	n, ok := v.Int()
	return int32(n), ok
}

func (s *Summary) timeProp(pid uint32) (time.Time, bool) {
	v, ok := s.Get(pid)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.Time()
	if !ok || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// Codepage returns the codepage of the summary strings, the default
// codepage when none is recorded.
func (s *Summary) Codepage() int {
	if s.section == nil {
		return codepage.Default
	}
	return s.section.Codepage
}

func (s *Summary) Title() (string, bool)               { return s.strProp(PIDTitle) }
func (s *Summary) Subject() (string, bool)             { return s.strProp(PIDSubject) }
func (s *Summary) Author() (string, bool)              { return s.strProp(PIDAuthor) }
func (s *Summary) Keywords() (string, bool)            { return s.strProp(PIDKeywords) }
func (s *Summary) Comments() (string, bool)            { return s.strProp(PIDComments) }
func (s *Summary) Template() (string, bool)            { return s.strProp(PIDTemplate) }
func (s *Summary) LastSavedBy() (string, bool)         { return s.strProp(PIDLastSavedBy) }
func (s *Summary) RevisionNumber() (string, bool)      { return s.strProp(PIDRevision) }
func (s *Summary) CreatingApplication() (string, bool) { return s.strProp(PIDAppName) }
func (s *Summary) CreateTime() (time.Time, bool)       { return s.timeProp(PIDCreateTime) }
func (s *Summary) LastSaveTime() (time.Time, bool)     { return s.timeProp(PIDLastSaveTime) }
func (s *Summary) LastPrinted() (time.Time, bool)      { return s.timeProp(PIDLastPrinted) }

// PageCount holds the minimum installer schema version.
func (s *Summary) PageCount() (int32, bool) { return s.intProp(PIDPageCount) }

// WordCount holds the source image flags.
func (s *Summary) WordCount() (int32, bool) { return s.intProp(PIDWordCount) }
func (s *Summary) CharCount() (int32, bool) { return s.intProp(PIDCharCount) }
func (s *Summary) Security() (int32, bool)  { return s.intProp(PIDSecurity) }

// UUID returns the package code stored in the revision number.
func (s *Summary) UUID() (uuid.UUID, bool) {
	rev, ok := s.RevisionNumber()
	if !ok {
		return uuid.Nil, false
	}
	// the package code may be followed by product and version codes
	if len(rev) > 38 && rev[0] == '{' {
		rev = rev[:38]
	}
	u, err := uuid.Parse(strings.Trim(rev, "{}"))
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

// Arch returns the platform part of the template, such as "Intel" or "x64".
func (s *Summary) Arch() (string, bool) {
	tmpl, ok := s.Template()
	if !ok {
		return "", false
	}
	arch := tmpl
	if i := strings.IndexByte(tmpl, ';'); i >= 0 {
		arch = tmpl[:i]
	}
	arch = strings.TrimSpace(arch)
	return arch, arch != ""
}

// Languages returns the locale ids listed in the template.
func (s *Summary) Languages() []uint16 {
	tmpl, ok := s.Template()
	if !ok {
		return nil
	}
	i := strings.IndexByte(tmpl, ';')
	if i < 0 {
		return nil
	}
	return lo.FilterMap(strings.Split(tmpl[i+1:], ","), func(part string, _ int) (uint16, bool) {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		return uint16(n), err == nil
	})
}

// LanguageTags returns the BCP 47 tags of the template languages.
func (s *Summary) LanguageTags() []string {
	return lo.Map(s.Languages(), func(lcid uint16, _ int) string { return LanguageTag(lcid) })
}

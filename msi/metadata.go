package msi

import (
	"strconv"
	"time"

	"github.com/msitools/msiparser/codepage"
)

// Metadata is the flat package description printed by list_metadata.
// Integer fields use -1 when the property is absent. Codepage is the
// summary codepage, DatabaseCodepage the one of the string pool.
type Metadata struct {
	Title            string   `json:"title"`
	Subject          string   `json:"subject"`
	Author           string   `json:"author"`
	Keywords         string   `json:"keywords"`
	UUID             string   `json:"uuid"`
	Arch             string   `json:"arch"`
	Languages        []string `json:"languages"`
	CreatedAt        string   `json:"created_at"`
	LastSavedAt      string   `json:"last_saved_at"`
	CreatedWith      string   `json:"created_with"`
	LastSavedBy      string   `json:"last_saved_by"`
	IsSigned         bool     `json:"is_signed"`
	Codepage         string   `json:"codepage"`
	CodepageID       string   `json:"codepage_id"`
	DatabaseCodepage string   `json:"database_codepage"`
	WordCount        int32    `json:"word_count"`
	Schema           int32    `json:"schema"`
	Comments         string   `json:"comments"`
}

// Metadata collects the summary information and signature state.
func (p *Package) Metadata() Metadata {
	s := p.summary
	m := Metadata{
		Languages: s.LanguageTags(),
		IsSigned:  p.IsSigned(),
		WordCount: -1,
		Schema:    -1,
	}
	if m.Languages == nil {
		m.Languages = []string{}
	}
	m.Title, _ = s.Title()
	m.Subject, _ = s.Subject()
	m.Author, _ = s.Author()
	m.Keywords, _ = s.Keywords()
	m.Arch, _ = s.Arch()
	m.CreatedWith, _ = s.CreatingApplication()
	m.LastSavedBy, _ = s.LastSavedBy()
	m.Comments, _ = s.Comments()
	if u, ok := s.UUID(); ok {
		m.UUID = u.String()
	}
	if t, ok := s.CreateTime(); ok {
		m.CreatedAt = t.Format(time.RFC3339)
	}
	if t, ok := s.LastSaveTime(); ok {
		m.LastSavedAt = t.Format(time.RFC3339)
	}
	if n, ok := s.WordCount(); ok {
		m.WordCount = n
	}
	if n, ok := s.PageCount(); ok {
		m.Schema = n
	}

	cp := s.Codepage()
	m.Codepage = codepage.Name(cp)
	m.CodepageID = strconv.Itoa(cp)
	m.DatabaseCodepage = codepage.Name(p.pool.Codepage())
	return m
}

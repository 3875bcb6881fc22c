// Package publication turns bibliography entries into publication-list HTML.
package publication

import (
	"fmt"
	"strings"

	"github.com/matsen/bibpub/internal/bibtex"
)

// Record is a bibliography entry reduced to the fields the page uses.
// Every field except EntryType may be empty.
type Record struct {
	EntryType string `json:"entry_type"` // Lowercased BibTeX type
	Key       string `json:"key"`        // Citation key, used as the anchor fragment

	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"` // Raw "A and B" author field
	Year      string `json:"year,omitempty"`
	Journal   string `json:"journal,omitempty"`
	Booktitle string `json:"booktitle,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	DOI       string `json:"doi,omitempty"`
}

// FromEntry converts a parsed entry into a Record.
// The citation key comes from the entry header, falling back to a "key" field.
func FromEntry(e bibtex.Entry) Record {
	key := strings.TrimSpace(e.Key)
	if key == "" {
		key = strings.TrimSpace(e.Field("key"))
	}

	return Record{
		EntryType: strings.ToLower(e.Type),
		Key:       key,
		Title:     e.Field("title"),
		Author:    e.Field("author"),
		Year:      e.Field("year"),
		Journal:   e.Field("journal"),
		Booktitle: e.Field("booktitle"),
		Publisher: e.Field("publisher"),
		DOI:       e.Field("doi"),
	}
}

// ParseError is returned when the bibliography cannot be loaded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("loading bibliography %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the bibliography at path and returns its records in file order.
func Load(path string) ([]Record, error) {
	entries, err := bibtex.ParseFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = FromEntry(e)
	}
	return records, nil
}

package bibtex

import (
	"sort"
	"strconv"
	"strings"
)

// Index maps citation keys and DOIs of parsed entries for duplicate checks.
type Index struct {
	// Keys maps citation keys to the line of their first definition
	Keys map[string]int
	// DOIs maps normalized DOI values to the first citation key using them
	DOIs map[string]string

	dups []Duplicate
}

// Duplicate describes an entry that repeats an earlier key or DOI.
type Duplicate struct {
	Field string `json:"field"` // "key" or "doi"
	Value string `json:"value"`
	Key   string `json:"key"`
	Line  int    `json:"line"`
	First string `json:"first"` // Key (or line, for key duplicates) of the earlier entry
}

// NewIndex builds an index over entries in order.
func NewIndex(entries []Entry) *Index {
	idx := &Index{
		Keys: make(map[string]int),
		DOIs: make(map[string]string),
	}
	for _, e := range entries {
		idx.add(e)
	}
	return idx
}

func (idx *Index) add(e Entry) {
	if e.Key != "" {
		if line, exists := idx.Keys[e.Key]; exists {
			idx.dups = append(idx.dups, Duplicate{
				Field: "key", Value: e.Key, Key: e.Key, Line: e.Line,
				First: "line " + strconv.Itoa(line),
			})
		} else {
			idx.Keys[e.Key] = e.Line
		}
	}

	doi := normalizeDOI(e.Field("doi"))
	if doi == "" {
		return
	}
	if first, exists := idx.DOIs[doi]; exists {
		idx.dups = append(idx.dups, Duplicate{
			Field: "doi", Value: doi, Key: e.Key, Line: e.Line, First: first,
		})
		return
	}
	idx.DOIs[doi] = e.Key
}

// Duplicates returns repeated keys and DOIs ordered by source line.
func (idx *Index) Duplicates() []Duplicate {
	out := append([]Duplicate(nil), idx.dups...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// normalizeDOI normalizes a DOI for comparison.
// Removes common prefixes like "https://doi.org/" and lowercases.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

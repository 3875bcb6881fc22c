package publication

import (
	"sort"
	"strconv"
	"strings"
)

// Default entry types for each section of the page.
var (
	DefaultJournalTypes = []string{
		"article", "book", "chapter", "inbook", "incollection",
		"mastersthesis", "phdthesis", "thesis",
	}
	DefaultConferenceTypes = []string{
		"inproceedings", "conference", "proceedings", "techreport",
	}
)

// TypeSet is a case-insensitive set of entry types.
type TypeSet map[string]bool

// NewTypeSet builds a TypeSet from a list of entry types.
func NewTypeSet(types []string) TypeSet {
	s := make(TypeSet, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			s[t] = true
		}
	}
	return s
}

// Contains reports whether entryType is in the set, ignoring case.
func (s TypeSet) Contains(entryType string) bool {
	return s[strings.ToLower(entryType)]
}

// Classify splits records into journal-like and conference-like lists,
// preserving input order. Records matching neither set are dropped.
// A record whose type is in both sets goes to journals only.
func Classify(records []Record, journalTypes, conferenceTypes TypeSet) (journals, conference []Record) {
	for _, r := range records {
		switch {
		case journalTypes.Contains(r.EntryType):
			journals = append(journals, r)
		case conferenceTypes.Contains(r.EntryType):
			conference = append(conference, r)
		}
	}
	return journals, conference
}

// SortByYear returns a copy of records ordered by descending year.
// Missing or non-numeric years sort as year 0. Ties keep input order.
func SortByYear(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return yearKey(sorted[i]) > yearKey(sorted[j])
	})
	return sorted
}

func yearKey(r Record) int {
	year, err := strconv.Atoi(strings.TrimSpace(r.Year))
	if err != nil {
		return 0
	}
	return year
}

// Package pipeline wires loading, rendering, and splicing into a page update.
package pipeline

import (
	"fmt"
	"os"

	"github.com/matsen/bibpub/internal/bibtex"
	"github.com/matsen/bibpub/internal/config"
	"github.com/matsen/bibpub/internal/publication"
	"github.com/matsen/bibpub/internal/splice"
)

// Regions are the page sections regenerated on every update, in order.
var Regions = []splice.Region{splice.JournalsRegion, splice.ConferenceRegion}

// Options holds the resolved inputs of a run.
type Options struct {
	BibPath         string
	HTMLPath        string
	AnchorBase      string
	Escape          bool
	JournalTypes    []string
	ConferenceTypes []string
}

// NewOptions resolves cfg against the site root.
func NewOptions(cfg *config.Config, root string) Options {
	return Options{
		BibPath:         cfg.BibPath(root),
		HTMLPath:        cfg.HTMLPath(root),
		AnchorBase:      cfg.AnchorBase,
		Escape:          cfg.EscapeHTML,
		JournalTypes:    cfg.JournalTypes,
		ConferenceTypes: cfg.ConferenceTypes,
	}
}

// Result describes a computed page update.
type Result struct {
	Journals   []publication.Record // Sorted, as rendered
	Conference []publication.Record // Sorted, as rendered
	Ignored    int                  // Records in neither section
	Unkeyed    int                  // Section records skipped for lack of a key
	Document   string               // Full updated page
	Changed    bool                 // Document differs from the file on disk
}

// Sections holds the classified, sorted records of a bibliography.
type Sections struct {
	Journals   []publication.Record `json:"journals"`
	Conference []publication.Record `json:"conference"`
	Ignored    int                  `json:"ignored"` // Records in neither section
}

// Collect loads the bibliography and sorts its records into sections.
func Collect(opts Options) (*Sections, error) {
	records, err := publication.Load(opts.BibPath)
	if err != nil {
		return nil, err
	}

	journals, conference := publication.Classify(records,
		publication.NewTypeSet(opts.JournalTypes),
		publication.NewTypeSet(opts.ConferenceTypes))

	return &Sections{
		Journals:   publication.SortByYear(journals),
		Conference: publication.SortByYear(conference),
		Ignored:    len(records) - len(journals) - len(conference),
	}, nil
}

// Build computes the updated page without writing it.
func Build(opts Options) (*Result, error) {
	sections, err := Collect(opts)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(opts.HTMLPath)
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	original := string(data)

	renderer := publication.Renderer{AnchorBase: opts.AnchorBase, Escape: opts.Escape}
	doc, err := splice.Apply(original, []splice.Block{
		{Region: splice.JournalsRegion, Body: renderer.Render(sections.Journals)},
		{Region: splice.ConferenceRegion, Body: renderer.Render(sections.Conference)},
	})
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", opts.HTMLPath, err)
	}

	return &Result{
		Journals:   sections.Journals,
		Conference: sections.Conference,
		Ignored:    sections.Ignored,
		Unkeyed:    countUnkeyed(sections.Journals) + countUnkeyed(sections.Conference),
		Document:   doc,
		Changed:    doc != original,
	}, nil
}

// Update computes the updated page and writes it back over HTMLPath.
// Nothing is written if any stage fails.
func Update(opts Options) (*Result, error) {
	res, err := Build(opts)
	if err != nil {
		return nil, err
	}

	if err := splice.WriteFile(opts.HTMLPath, res.Document); err != nil {
		return nil, fmt.Errorf("writing %s: %w", opts.HTMLPath, err)
	}
	return res, nil
}

// Report collects every problem found by Check.
type Report struct {
	Entries      int                `json:"entries"`
	Duplicates   []bibtex.Duplicate `json:"duplicates,omitempty"`
	MarkerErrors []string           `json:"marker_errors,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// OK reports whether the page can be updated safely.
func (r *Report) OK() bool {
	return len(r.Duplicates) == 0 && len(r.MarkerErrors) == 0
}

// Check validates the bibliography and page without modifying anything.
// Load failures are returned as errors; content problems go in the report.
func Check(opts Options) (*Report, error) {
	entries, err := bibtex.ParseFile(opts.BibPath)
	if err != nil {
		return nil, &publication.ParseError{Path: opts.BibPath, Err: err}
	}

	data, err := os.ReadFile(opts.HTMLPath)
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	doc := string(data)

	report := &Report{
		Entries:    len(entries),
		Duplicates: bibtex.NewIndex(entries).Duplicates(),
		Warnings:   splice.LintComments(doc, Regions),
	}
	for _, err := range splice.CheckMarkers(doc, Regions) {
		report.MarkerErrors = append(report.MarkerErrors, err.Error())
	}
	for _, e := range entries {
		if publication.FromEntry(e).Key == "" {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("line %d: @%s entry has no citation key and will be skipped", e.Line, e.Type))
		}
	}
	return report, nil
}

func countUnkeyed(records []publication.Record) int {
	n := 0
	for _, r := range records {
		if r.Key == "" {
			n++
		}
	}
	return n
}

package publication

import (
	"fmt"
	"html"
	"strings"
)

// DefaultAnchorBase is the link target of each entry, relative to the page.
const DefaultAnchorBase = "./files/citations.bib"

// UntitledPlaceholder is shown for records without a title.
const UntitledPlaceholder = "Untitled"

const (
	authorSeparator = " and "
	listSeparator   = " · "
)

const entryTemplate = `    <article class="publication-entry">
      <h3><a href="%s">%s</a></h3>
      <p class="publication-authors">%s</p>
      <p class="publication-meta">%s</p>
    </article>`

// Renderer formats records as publication-entry HTML snippets.
type Renderer struct {
	// AnchorBase is the path joined with "#key" to build each link.
	// Empty means DefaultAnchorBase.
	AnchorBase string
	// Escape HTML-escapes all inserted text. Off by default: text is
	// inserted verbatim, so markup in titles passes through.
	Escape bool
}

// Render formats records in order, one snippet each, joined by newlines.
// Records without a citation key are skipped.
func (r Renderer) Render(records []Record) string {
	snippets := make([]string, 0, len(records))
	for _, rec := range records {
		if s, ok := r.RenderRecord(rec); ok {
			snippets = append(snippets, s)
		}
	}
	return strings.Join(snippets, "\n")
}

// RenderRecord formats a single record. It returns false if the record has
// no citation key.
func (r Renderer) RenderRecord(rec Record) (string, bool) {
	if rec.Key == "" {
		return "", false
	}

	anchor := r.Anchor(rec.Key)
	title := FormatTitle(rec.Title)
	authors := FormatAuthors(rec.Author)
	meta := FormatMeta(rec)

	if r.Escape {
		anchor = html.EscapeString(anchor)
		title = html.EscapeString(title)
		authors = html.EscapeString(authors)
		meta = html.EscapeString(meta)
	}

	return fmt.Sprintf(entryTemplate, anchor, title, authors, meta), true
}

// Anchor returns the link for a citation key, e.g. "./files/citations.bib#smith2020".
func (r Renderer) Anchor(key string) string {
	base := r.AnchorBase
	if base == "" {
		base = DefaultAnchorBase
	}
	return base + "#" + key
}

// lineBreaks maps every line ending to a single space.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// FormatTitle joins a multi-line title into one line.
func FormatTitle(title string) string {
	title = strings.TrimSpace(lineBreaks.Replace(title))
	if title == "" {
		return UntitledPlaceholder
	}
	return title
}

// FormatAuthors turns a BibTeX "A and B" author list into "A · B".
func FormatAuthors(field string) string {
	if field == "" {
		return ""
	}

	var names []string
	for _, name := range strings.Split(lineBreaks.Replace(field), authorSeparator) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, listSeparator)
}

// FormatMeta builds the "year · venue" line. The venue is the journal,
// else the booktitle, else the publisher. Empty parts are left out.
func FormatMeta(rec Record) string {
	var parts []string
	if year := strings.TrimSpace(rec.Year); year != "" {
		parts = append(parts, year)
	}
	if venue := venue(rec); venue != "" {
		parts = append(parts, venue)
	}
	return strings.Join(parts, listSeparator)
}

func venue(rec Record) string {
	for _, v := range []string{rec.Journal, rec.Booktitle, rec.Publisher} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

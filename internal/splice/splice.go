// Package splice replaces marker-delimited regions of a text document.
package splice

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for marker validation.
var (
	ErrMarkerNotFound  = errors.New("marker not found")
	ErrMarkerDuplicate = errors.New("marker appears more than once")
	ErrMarkerOrder     = errors.New("end marker precedes start marker")
	ErrRegionOverlap   = errors.New("region overlaps another region")
)

// Region is a span of a document bounded by a pair of literal markers.
type Region struct {
	Name  string
	Start string
	End   string
}

// Publication page regions.
var (
	JournalsRegion = Region{
		Name:  "journals",
		Start: "<!-- BIBTEX_JOURNALS_START -->",
		End:   "<!-- BIBTEX_JOURNALS_END -->",
	}
	ConferenceRegion = Region{
		Name:  "conference",
		Start: "<!-- BIBTEX_CONFERENCE_START -->",
		End:   "<!-- BIBTEX_CONFERENCE_END -->",
	}
)

// MarkerError reports a marker that violates the exactly-once rule.
type MarkerError struct {
	Region Region
	Marker string
	Count  int
	Err    error // One of the sentinel errors above
}

func (e *MarkerError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMarkerOrder):
		return fmt.Sprintf("%s region: %s precedes %s", e.Region.Name, e.Region.End, e.Region.Start)
	case errors.Is(e.Err, ErrRegionOverlap):
		return fmt.Sprintf("%s region: %s falls inside another region", e.Region.Name, e.Marker)
	case errors.Is(e.Err, ErrMarkerDuplicate):
		return fmt.Sprintf("%s region: %s appears %d times", e.Region.Name, e.Marker, e.Count)
	default:
		return fmt.Sprintf("%s region: markers not found for %s / %s (missing %s)",
			e.Region.Name, e.Region.Start, e.Region.End, e.Marker)
	}
}

func (e *MarkerError) Unwrap() error {
	return e.Err
}

// Block pairs a region with its new content.
type Block struct {
	Region Region
	Body   string
}

// Locate checks that both markers of region occur exactly once, start
// before end, and returns the byte offsets of the start marker and of the
// end marker.
func Locate(doc string, region Region) (start, end int, err error) {
	for _, marker := range []string{region.Start, region.End} {
		switch n := strings.Count(doc, marker); {
		case n == 0:
			return 0, 0, &MarkerError{Region: region, Marker: marker, Err: ErrMarkerNotFound}
		case n > 1:
			return 0, 0, &MarkerError{Region: region, Marker: marker, Count: n, Err: ErrMarkerDuplicate}
		}
	}

	start = strings.Index(doc, region.Start)
	end = strings.Index(doc, region.End)
	if end < start+len(region.Start) {
		return 0, 0, &MarkerError{Region: region, Marker: region.End, Count: 1, Err: ErrMarkerOrder}
	}
	return start, end, nil
}

// Replace substitutes everything from the region's start marker through its
// end marker with start + "\n" + body + "\n" + end. In a CRLF document the
// inserted line breaks are CRLF too.
func Replace(doc string, region Region, body string) (string, error) {
	return Apply(doc, []Block{{Region: region, Body: body}})
}

// Apply replaces the region of every block. All markers are located in the
// original doc before anything is replaced, so a body that happens to contain
// another region's marker leaves that region alone. Nothing is returned
// unless every block succeeds.
func Apply(doc string, blocks []Block) (string, error) {
	spans, err := locateAll(doc, blocks)
	if err != nil {
		return "", err
	}

	nl := "\n"
	if strings.Contains(doc, "\r\n") {
		nl = "\r\n"
	}

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		body := sp.block.Body
		if nl != "\n" {
			body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", nl)
		}
		b.WriteString(doc[last:sp.start])
		b.WriteString(sp.block.Region.Start)
		b.WriteString(nl)
		b.WriteString(body)
		b.WriteString(nl)
		b.WriteString(sp.block.Region.End)
		last = sp.end
	}
	b.WriteString(doc[last:])
	return b.String(), nil
}

// span is the byte range [start, end) of a block's region, markers included.
type span struct {
	start, end int
	block      Block
}

// locateAll locates every block's region in doc and returns the spans in
// document order. Regions may not nest or overlap.
func locateAll(doc string, blocks []Block) ([]span, error) {
	spans := make([]span, 0, len(blocks))
	for _, blk := range blocks {
		start, end, err := Locate(doc, blk.Region)
		if err != nil {
			return nil, err
		}
		spans = append(spans, span{start: start, end: end + len(blk.Region.End), block: blk})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			r := spans[i].block.Region
			return nil, &MarkerError{Region: r, Marker: r.Start, Count: 1, Err: ErrRegionOverlap}
		}
	}
	return spans, nil
}

// CheckMarkers validates every region against doc and returns all problems.
func CheckMarkers(doc string, regions []Region) []error {
	var errs []error
	for _, region := range regions {
		for _, marker := range []string{region.Start, region.End} {
			switch n := strings.Count(doc, marker); {
			case n == 0:
				errs = append(errs, &MarkerError{Region: region, Marker: marker, Err: ErrMarkerNotFound})
			case n > 1:
				errs = append(errs, &MarkerError{Region: region, Marker: marker, Count: n, Err: ErrMarkerDuplicate})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	blocks := make([]Block, 0, len(regions))
	for _, region := range regions {
		if _, _, err := Locate(doc, region); err != nil {
			errs = append(errs, err)
		}
		blocks = append(blocks, Block{Region: region})
	}
	if len(errs) > 0 {
		return errs
	}

	if _, err := locateAll(doc, blocks); err != nil {
		errs = append(errs, err)
	}
	return errs
}

package splice

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// LintComments tokenizes doc as HTML and warns about markers that occur in
// the text but not as standalone comments, for example inside a <script>
// body or an attribute value. Replacing such a marker would corrupt the page.
func LintComments(doc string, regions []Region) []string {
	comments := make(map[string]int)
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.CommentToken {
			comments["<!--"+string(z.Text())+"-->"]++
		}
	}

	var warnings []string
	for _, region := range regions {
		for _, marker := range []string{region.Start, region.End} {
			total := strings.Count(doc, marker)
			if asComment := comments[marker]; total > asComment {
				warnings = append(warnings, fmt.Sprintf(
					"%s region: %d of %d occurrences of %s are not HTML comments",
					region.Name, total-asComment, total, marker))
			}
		}
	}
	return warnings
}

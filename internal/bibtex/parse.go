// Package bibtex reads BibTeX databases into plain field maps.
package bibtex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	nbib "github.com/nickng/bibtex"
)

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("bibtex syntax error")

// Entry is a single @type{key, ...} record.
type Entry struct {
	Type   string            // Lowercased entry type, e.g. "article"
	Key    string            // Citation key, may be empty
	Fields map[string]string // Lowercased field name -> value with outer delimiters removed
	Line   int               // 1-based line of the '@'
}

// Field returns the value of a field, or "" if it is not set.
func (e Entry) Field(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// SyntaxError reports malformed input, at a specific line when known.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// monthStrings are predefined by every BibTeX style.
const monthStrings = `@string{jan = "January"} @string{feb = "February"} @string{mar = "March"}
@string{apr = "April"} @string{may = "May"} @string{jun = "June"}
@string{jul = "July"} @string{aug = "August"} @string{sep = "September"}
@string{oct = "October"} @string{nov = "November"} @string{dec = "December"}
`

// Match entry start: @type{ or @type(
var entryStartRegex = regexp.MustCompile(`@[ \t]*([A-Za-z]+)[ \t]*([{(])`)

// Match an entry that opens straight into its first field: @type{,
var emptyKeyRegex = regexp.MustCompile(`^(@[a-z]+\{)\s*,`)

// Stand-in citation key for entries written without one.
const noKeyPrefix = "bibpub-nokey-"

// ParseFile parses the BibTeX file at path.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// chunk is the source of one @-block, rewritten to the @type{...} form.
type chunk struct {
	typ  string
	text string
	line int
}

// Parse reads a BibTeX database.
//
// Text outside of entries is ignored, as are @comment and @preamble blocks.
// @string definitions are expanded in later field values, and "#" joins
// value parts. Field values are parsed by github.com/nickng/bibtex.
func Parse(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	src := strings.ReplaceAll(string(data), "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")

	chunks, err := split(src)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(monthStrings)
	var lines []int
	for _, c := range chunks {
		b.WriteString(c.text)
		b.WriteByte('\n')
		if c.typ != "string" {
			lines = append(lines, c.line)
		}
	}

	bib, err := nbib.Parse(strings.NewReader(b.String()))
	if err != nil {
		return nil, locate(chunks, err)
	}

	entries := make([]Entry, 0, len(bib.Entries))
	for i, be := range bib.Entries {
		e := Entry{
			Type:   strings.ToLower(be.Type),
			Key:    be.CiteName,
			Fields: make(map[string]string, len(be.Fields)),
		}
		if strings.HasPrefix(e.Key, noKeyPrefix) {
			e.Key = ""
		}
		if i < len(lines) {
			e.Line = lines[i]
		}
		for name, value := range be.Fields {
			if value == nil {
				continue
			}
			e.Fields[strings.ToLower(name)] = value.String()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// split cuts src into its @-blocks by brace depth, dropping @comment,
// @preamble, and free text between blocks.
func split(src string) ([]chunk, error) {
	var chunks []chunk
	pos, line, unkeyed := 0, 1, 0

	for {
		loc := entryStartRegex.FindStringSubmatchIndex(src[pos:])
		if loc == nil {
			return chunks, nil
		}
		start, open := pos+loc[0], pos+loc[4]
		line += strings.Count(src[pos:start], "\n")
		startLine := line
		typ := strings.ToLower(src[pos+loc[2] : pos+loc[3]])

		end := closing(src, open)
		if end < 0 {
			return nil, &SyntaxError{Line: startLine, Msg: fmt.Sprintf("unterminated @%s entry", typ)}
		}
		line += strings.Count(src[start:end], "\n")
		pos = end + 1

		if typ == "comment" || typ == "preamble" {
			continue
		}
		text := "@" + typ + "{" + src[open+1:end] + "}"
		if typ != "string" && emptyKeyRegex.MatchString(text) {
			unkeyed++
			text = emptyKeyRegex.ReplaceAllString(text, "${1}"+noKeyPrefix+strconv.Itoa(unkeyed)+",")
		}
		chunks = append(chunks, chunk{typ: typ, text: text, line: startLine})
	}
}

// closing returns the index of the delimiter closing the block opened at
// src[open], or -1. Braces nest in both forms; a backslash escapes the next
// byte.
func closing(src string, open int) int {
	depth := 0
	for i := open + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth == 0 {
				if src[open] == '{' {
					return i
				}
				return -1
			}
			depth--
		case ')':
			if depth == 0 && src[open] == '(' {
				return i
			}
		}
	}
	return -1
}

// locate finds the first block that fails to parse on its own, given the
// @string blocks before it, and reports err at that block's line.
func locate(chunks []chunk, err error) error {
	var strs strings.Builder
	strs.WriteString(monthStrings)
	for _, c := range chunks {
		if _, cerr := nbib.Parse(strings.NewReader(strs.String() + c.text)); cerr != nil {
			return &SyntaxError{Line: c.line, Msg: cerr.Error()}
		}
		if c.typ == "string" {
			strs.WriteString(c.text)
			strs.WriteByte('\n')
		}
	}
	return &SyntaxError{Msg: err.Error()}
}

package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"

	"livecollect/collectors"
)

// Document is a report read back from disk.
type Document struct {
	Header   []string
	Sections []collectors.Section
}

var knownTitles = func() map[string]bool {
	m := make(map[string]bool, len(collectors.Titles))
	for _, t := range collectors.Titles {
		m[t] = true
	}
	return m
}()

// Parse splits a report into its header lines and sections. A section starts
// at a rule line, one of the fixed section titles and another rule line,
// preceded by a blank line. Rule-framed text inside a body stays in the body.
// A truncated trailing section is kept with whatever body was written.
func Parse(r io.Reader) (Document, error) {
	var lines []string
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return Document{}, errors.Wrap(err, "read report")
	}

	var doc Document
	var body []string
	current := -1
	flush := func() {
		if current >= 0 {
			doc.Sections[current].Body = strings.TrimRight(strings.Join(body, "\n"), "\n")
		}
		body = nil
	}

	for i := 0; i < len(lines); i++ {
		if isSectionStart(lines, i) {
			flush()
			doc.Sections = append(doc.Sections, collectors.Section{Title: lines[i+1]})
			current = len(doc.Sections) - 1
			i += 2
			continue
		}
		if current < 0 {
			if lines[i] != "" {
				doc.Header = append(doc.Header, lines[i])
			}
			continue
		}
		body = append(body, lines[i])
	}
	flush()
	return doc, nil
}

func isSectionStart(lines []string, i int) bool {
	if i+2 >= len(lines) || lines[i] != Rule || lines[i+2] != Rule || !knownTitles[lines[i+1]] {
		return false
	}
	return i == 0 || lines[i-1] == ""
}

// Titles lists section titles in file order.
func (d Document) Titles() []string {
	titles := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		titles[i] = s.Title
	}
	return titles
}

// Package report owns the single text report of a collection.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"livecollect/collectors"
)

// Title is the first line of every report.
const Title = "Live Forensic Collection Report"

// Rule frames section titles.
var Rule = strings.Repeat("#", 80)

// Header is written once when the report is created.
type Header struct {
	Generated time.Time
	Host      string
	User      string
}

func (h Header) lines() []string {
	return []string{
		Title,
		"Generated: " + h.Generated.Format(time.RFC3339),
		"Host: " + orUnknown(h.Host),
		"User: " + orUnknown(h.User),
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// Writer appends framed sections to the report and syncs after each one, so
// the file on disk is complete up to the last appended section.
type Writer struct {
	f        afero.File
	path     string
	sections int
}

// Create creates the report at path and writes the header.
func Create(fs afero.Fs, path string, h Header) (*Writer, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create report")
	}
	w := &Writer{f: f, path: path}
	if err := w.write(strings.Join(h.lines(), "\n") + "\n\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) Path() string { return w.path }

// Sections is the number of sections appended so far.
func (w *Writer) Sections() int { return w.sections }

// Append writes one section: rule, title, rule, body, blank line.
func (w *Writer) Append(s collectors.Section) error {
	if w.f == nil {
		return errors.New("report is closed")
	}
	body := Normalize(s.Body)
	if err := w.write(fmt.Sprintf("%s\n%s\n%s\n%s\n\n", Rule, s.Title, Rule, body)); err != nil {
		return errors.Wrapf(err, "append %q", s.Title)
	}
	w.sections++
	return nil
}

func (w *Writer) write(s string) error {
	if _, err := w.f.WriteString(s); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

var newlines = strings.NewReplacer("\r\r\n", "\n", "\r\n", "\n", "\r", "\n")

// Normalize makes command output safe to embed: valid UTF-8 with undecodable
// bytes replaced, Unix line endings, and no trailing blank lines.
func Normalize(body string) string {
	body = strings.ToValidUTF8(body, "\uFFFD")
	body = newlines.Replace(body)
	return strings.TrimRight(body, "\n")
}

// Package ioc scans collected section text for indicator patterns.
package ioc

import (
	"bufio"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"livecollect/collectors"
	"livecollect/evidence"
)

// RelPath is where the scan result is written inside the output directory.
var RelPath = filepath.ToSlash(filepath.Join("analysis", "ioc_scan.json"))

type Options struct {
	IOCFile string
}

type Match struct {
	Pattern   string `json:"pattern"`
	Section   string `json:"section"`
	FirstLine string `json:"first_line,omitempty"`
	Count     int    `json:"count"`
}

type Result struct {
	IOCFile  string  `json:"ioc_file"`
	Patterns int     `json:"patterns"`
	Matches  []Match `json:"matches"`
	Scanned  int     `json:"scanned"`
	Finished string  `json:"finished"`
}

// LoadPatterns reads one pattern per line. Blank lines and lines starting
// with '#' are skipped.
func LoadPatterns(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open IOC file")
	}
	defer f.Close()

	var patterns []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "read IOC file")
	}
	if len(patterns) == 0 {
		return nil, errors.New("IOC file contained no patterns")
	}
	return patterns, nil
}

// ScanSections matches every pattern against every section body, case
// insensitively. One Match is reported per pattern and section.
func ScanSections(ctx context.Context, fs afero.Fs, sections []collectors.Section, opts Options) (Result, error) {
	patterns, err := LoadPatterns(fs, opts.IOCFile)
	if err != nil {
		return Result{}, err
	}

	matches := []Match{}
	scanned := 0
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		scanned++
		lower := strings.ToLower(sec.Body)
		for _, p := range patterns {
			lp := strings.ToLower(p)
			n := strings.Count(lower, lp)
			if n == 0 {
				continue
			}
			m := Match{Pattern: p, Section: sec.Title, Count: n}
			for _, l := range strings.Split(sec.Body, "\n") {
				if strings.Contains(strings.ToLower(l), lp) {
					m.FirstLine = strings.TrimSpace(l)
					break
				}
			}
			matches = append(matches, m)
		}
	}

	return Result{
		IOCFile:  opts.IOCFile,
		Patterns: len(patterns),
		Matches:  matches,
		Scanned:  scanned,
		Finished: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// Write stores res at RelPath under outputDir.
func Write(fs afero.Fs, outputDir string, res Result) (string, error) {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	if err := evidence.WriteFileAtomic(fs, filepath.Join(outputDir, filepath.FromSlash(RelPath)), b, 0o600); err != nil {
		return "", err
	}
	return RelPath, nil
}

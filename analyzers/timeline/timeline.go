// Package timeline records what happened during a collection as JSON lines.
package timeline

import (
	"bufio"
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"livecollect/collectors"
)

// RelPath is where the timeline is written inside the output directory.
var RelPath = filepath.ToSlash(filepath.Join("analysis", "timeline.jsonl"))

const (
	SessionStarted  = "session_started"
	SectionWritten  = "section_written"
	ArtifactCopied  = "artifact_copied"
	SessionFinished = "session_finished"
)

type Event struct {
	Time       string            `json:"time"`
	Type       string            `json:"type"`
	Section    string            `json:"section,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Artifact   string            `json:"artifact,omitempty"`
	Collector  string            `json:"collector,omitempty"`
	SHA256     string            `json:"sha256,omitempty"`
	SizeBytes  int64             `json:"size_bytes,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Recorder accumulates events in order. It is not safe for concurrent use;
// a collection runs its sections sequentially.
type Recorder struct {
	CaseID string
	now    func() time.Time
	events []Event
}

func NewRecorder(caseID string, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{CaseID: caseID, now: now}
}

func (r *Recorder) stamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *Recorder) Started(at time.Time, outputDir string) {
	r.events = append(r.events, Event{
		Time:     at.UTC().Format(time.RFC3339Nano),
		Type:     SessionStarted,
		Metadata: map[string]string{"case_id": r.CaseID, "output_dir": outputDir},
	})
}

func (r *Recorder) Section(title, collector string, took time.Duration, bytes int) {
	r.events = append(r.events, Event{
		Time:       r.stamp(),
		Type:       SectionWritten,
		Section:    title,
		Collector:  collector,
		DurationMS: took.Milliseconds(),
		SizeBytes:  int64(bytes),
	})
}

// Artifacts records one event per copied artifact, stamped with its copy time.
func (r *Recorder) Artifacts(artifacts []collectors.Artifact) {
	for _, a := range artifacts {
		r.events = append(r.events, Event{
			Time:      a.CollectedAt,
			Type:      ArtifactCopied,
			Artifact:  a.RelativePath,
			Collector: a.Collector,
			SHA256:    a.SHA256,
			SizeBytes: a.SizeBytes,
			Metadata:  a.Metadata,
		})
	}
}

func (r *Recorder) Finished(sections, artifacts int) {
	r.events = append(r.events, Event{
		Time: r.stamp(),
		Type: SessionFinished,
		Metadata: map[string]string{
			"case_id":   r.CaseID,
			"sections":  strconv.Itoa(sections),
			"artifacts": strconv.Itoa(artifacts),
		},
	})
}

func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// WriteJSONL writes events, one JSON object per line, to RelPath under
// outputDir and returns RelPath.
func WriteJSONL(ctx context.Context, fs afero.Fs, outputDir string, events []Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(outputDir, filepath.FromSlash(RelPath))
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "create analysis dir")
	}

	f, err := fs.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create timeline")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return "", errors.Wrap(err, "encode event")
		}
	}
	if err := w.Flush(); err != nil {
		return "", errors.Wrap(err, "write timeline")
	}
	return RelPath, nil
}

// Package session runs one collection: it creates the output directory,
// runs every collector in order and appends each section to the report.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"livecollect/analyzers/ioc"
	"livecollect/analyzers/timeline"
	"livecollect/collectors"
	"livecollect/collectors/activity"
	"livecollect/collectors/browser"
	"livecollect/collectors/network"
	"livecollect/collectors/platform"
	"livecollect/collectors/runner"
	"livecollect/collectors/system"
	"livecollect/core/internal/config"
	"livecollect/core/internal/report"
	"livecollect/evidence"
)

const (
	DirPrefix  = "forensic_collection_"
	DirLayout  = "20060102_150405"
	ReportName = "report.txt"
	VaultName  = "artifacts"
)

// ErrSetup is matched by errors.Is for failures that happen before the first
// section is written. Nothing was collected when it is returned.
var ErrSetup = errors.New("setup failed")

type setupError struct {
	op  string
	err error
}

func (e *setupError) Error() string        { return fmt.Sprintf("%s: %s: %v", ErrSetup, e.op, e.err) }
func (e *setupError) Unwrap() error        { return e.err }
func (e *setupError) Is(target error) bool { return target == ErrSetup }

type Options struct {
	Fs     afero.Fs
	Runner runner.Runner
	Logger *log.Logger

	// OutputBase is the directory the timestamped output directory is created in.
	OutputBase string
	CaseID     string
	StartedAt  time.Time
	Host       string
	User       string

	GOOS   string
	Getenv func(string) string
	Config *config.Config

	IOCFile string

	// Native sources; nil selects the live gopsutil implementations.
	HostSummary func(context.Context) string
	Processes   activity.Lister
	Network     network.Source

	// Collectors, when set, replaces the standard seven collectors.
	Collectors func(Deps) []collectors.Collector
}

// Deps is what the standard collectors are built from.
type Deps struct {
	Fs     afero.Fs
	Runner runner.Runner
	Plan   platform.Plan
	Vault  *evidence.Vault
	Config *config.Config

	HostSummary func(context.Context) string
	Processes   activity.Lister
	Network     network.Source
}

type Result struct {
	CaseID     string
	OutputDir  string
	ReportPath string
	VaultDir   string
	Sections   []collectors.Section
	Artifacts  []collectors.Artifact
	IOCMatches int
}

// Standard returns the seven collectors in report order.
func Standard(d Deps) []collectors.Collector {
	var lister activity.Lister = d.Processes
	if lister == nil {
		lister = activity.CommandLister{Runner: d.Runner, Command: d.Plan.ProcessList}
	}
	limit := config.DefaultHistoryLimit
	if d.Config != nil {
		limit = d.Config.HistoryLimit
	}
	return []collectors.Collector{
		system.NewIdentityCollector(d.Runner, d.Plan.System, d.HostSummary),
		activity.NewProcessCollector(d.Fs, lister),
		system.NewDriversCollector(d.Runner, d.Plan.Drivers),
		activity.NewUsersCollector(d.Runner, d.Plan.Users),
		browser.NewCollector(d.Fs, d.Vault, d.Plan.Browsers, limit),
		network.NewStateCollector(d.Runner, d.Plan.Network, d.Network),
		network.NewListeningCollector(d.Runner, d.Plan.Listening, d.Network),
	}
}

func (o *Options) defaults() error {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Runner == nil {
		timeout, err := o.Config.Timeout()
		if err != nil {
			return err
		}
		o.Runner = runner.Exec{Timeout: timeout}
	}
	if o.OutputBase == "" {
		o.OutputBase = o.Config.Output
	}
	if o.CaseID == "" {
		o.CaseID = uuid.NewString()
	}
	if o.StartedAt.IsZero() {
		o.StartedAt = time.Now()
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Getenv == nil {
		o.Getenv = func(string) string { return "" }
	}
	if o.HostSummary == nil {
		o.HostSummary = system.HostSummary
	}
	if o.Network == nil {
		o.Network = network.SystemSource{}
	}
	if o.Collectors == nil {
		o.Collectors = Standard
	}
	return nil
}

// Run performs a collection. An error wrapping ErrSetup means the output
// directory, vault or report could not be created. Once the report exists
// every section is attempted; a later error reports an incomplete report or
// bookkeeping file and the Result is still filled in.
func Run(ctx context.Context, opts Options) (Result, error) {
	if err := opts.defaults(); err != nil {
		return Result{}, &setupError{op: "options", err: err}
	}
	fs, logger := opts.Fs, opts.Logger

	plan := platform.ForOS(opts.GOOS, opts.Getenv, platform.Limits{LogonEvents: opts.Config.LogonEvents})
	if err := opts.Config.Apply(&plan); err != nil {
		return Result{}, &setupError{op: "command plan", err: err}
	}
	if opts.Processes == nil && plan.ProcessList.String() == "" {
		opts.Processes = activity.NativeLister{}
	}

	outDir := filepath.Join(opts.OutputBase, DirPrefix+opts.StartedAt.Local().Format(DirLayout))
	if err := fs.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, &setupError{op: "create output directory", err: err}
	}
	vault, err := evidence.NewVault(fs, filepath.Join(outDir, VaultName), VaultName)
	if err != nil {
		return Result{}, &setupError{op: "create vault", err: err}
	}
	reportPath := filepath.Join(outDir, ReportName)
	w, err := report.Create(fs, reportPath, report.Header{Generated: opts.StartedAt, Host: opts.Host, User: opts.User})
	if err != nil {
		return Result{}, &setupError{op: "create report", err: err}
	}
	defer w.Close()
	logger.Printf("case %s: writing %s", opts.CaseID, outDir)

	res := Result{CaseID: opts.CaseID, OutputDir: outDir, ReportPath: w.Path(), VaultDir: vault.Dir()}
	rec := timeline.NewRecorder(opts.CaseID, nil)
	rec.Started(opts.StartedAt, outDir)

	rc := collectors.RunContext{CaseID: opts.CaseID, OutputDir: outDir}
	cols := opts.Collectors(Deps{
		Fs:          fs,
		Runner:      opts.Runner,
		Plan:        plan,
		Vault:       vault,
		Config:      opts.Config,
		HostSummary: opts.HostSummary,
		Processes:   opts.Processes,
		Network:     opts.Network,
	})

	var failed []string
	appendSection := func(name string, sec collectors.Section, took time.Duration) {
		if err := w.Append(sec); err != nil {
			logger.Printf("section %q not written: %v", sec.Title, err)
			failed = append(failed, sec.Title)
		}
		res.Sections = append(res.Sections, sec)
		rec.Section(sec.Title, name, took, len(sec.Body))
	}

	for _, c := range cols {
		logger.Printf("collecting %s", c.Name())
		copied := len(vault.Artifacts())
		start := time.Now()
		sec := collectors.Section{Title: c.Title(), Body: safeCollect(ctx, c, rc)}
		took := time.Since(start)
		for _, a := range vault.Artifacts()[copied:] {
			logger.Printf("preserved %s -> %s", a.Metadata["source"], a.RelativePath)
			rec.Artifacts([]collectors.Artifact{a})
		}
		appendSection(c.Name(), sec, took)
		logger.Printf("%s done in %s", c.Name(), took.Round(time.Millisecond))
	}

	res.Artifacts = vault.Artifacts()

	extra := []collectors.Artifact{}
	var iocLine string
	if opts.IOCFile != "" {
		iocLine, extra = scanIOCs(ctx, fs, outDir, opts.IOCFile, res.Sections, logger, &res)
	}

	appendSection("notes", collectors.Section{Title: collectors.TitleNotes, Body: notes(vault.Dir(), len(res.Artifacts), iocLine)}, 0)

	if err := w.Close(); err != nil {
		failed = append(failed, "close")
		logger.Printf("close report: %v", err)
	}
	rec.Finished(len(res.Sections), len(res.Artifacts))

	if err := finish(ctx, fs, outDir, opts, rec, res.Artifacts, extra); err != nil {
		logger.Printf("bookkeeping: %v", err)
		return res, err
	}
	logger.Printf("collection complete: %s", reportPath)

	if len(failed) > 0 {
		return res, errors.Errorf("report incomplete: could not write %s", strings.Join(failed, ", "))
	}
	return res, nil
}

// safeCollect runs one collector. Errors and panics become the section body.
func safeCollect(ctx context.Context, c collectors.Collector, rc collectors.RunContext) (body string) {
	defer func() {
		if r := recover(); r != nil {
			body = fmt.Sprintf("ERROR in %s: %v", c.Name(), r)
		}
	}()
	body, err := c.Collect(ctx, rc)
	if err != nil {
		if body != "" {
			body += "\n"
		}
		body += fmt.Sprintf("ERROR in %s: %v", c.Name(), err)
	}
	return body
}

func scanIOCs(ctx context.Context, fs afero.Fs, outDir, iocFile string, sections []collectors.Section, logger *log.Logger, res *Result) (string, []collectors.Artifact) {
	scan, err := ioc.ScanSections(ctx, fs, sections, ioc.Options{IOCFile: iocFile})
	if err != nil {
		logger.Printf("ioc scan: %v", err)
		return fmt.Sprintf("IOC scan failed: %v", err), nil
	}
	res.IOCMatches = len(scan.Matches)
	rel, err := ioc.Write(fs, outDir, scan)
	if err != nil {
		logger.Printf("ioc scan: %v", err)
		return fmt.Sprintf("IOC scan: %d matches for %d patterns (result not saved: %v)", len(scan.Matches), scan.Patterns, err), nil
	}
	logger.Printf("ioc scan: %d matches written to %s", len(scan.Matches), rel)
	line := fmt.Sprintf("IOC scan: %d matches for %d patterns (%s)", len(scan.Matches), scan.Patterns, rel)
	return line, []collectors.Artifact{fileArtifact(fs, outDir, rel, "ioc_scan")}
}

func notes(vaultDir string, copies int, iocLine string) string {
	lines := []string{
		"Artifacts folder: " + vaultDir,
		fmt.Sprintf("Copied artifacts: %d", copies),
		"Run elevated (Administrator on Windows, root elsewhere) for full detail. Some files (browser, system) may be locked; they were copied where possible.",
	}
	if iocLine != "" {
		lines = append(lines, iocLine)
	}
	return strings.Join(lines, "\n")
}

// finish writes the timeline and the manifest after the report is closed.
func finish(ctx context.Context, fs afero.Fs, outDir string, opts Options, rec *timeline.Recorder, copies, extra []collectors.Artifact) error {
	rel, err := timeline.WriteJSONL(ctx, fs, outDir, rec.Events())
	if err != nil {
		return errors.Wrap(err, "write timeline")
	}
	extra = append(extra, fileArtifact(fs, outDir, rel, "timeline"))

	m := evidence.Manifest{
		CaseID:    opts.CaseID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Report:    fileArtifact(fs, outDir, ReportName, "report"),
		Artifacts: append(append([]collectors.Artifact{}, copies...), extra...),
		Metadata: map[string]string{
			"host":       opts.Host,
			"user":       opts.User,
			"os":         opts.GOOS,
			"started_at": opts.StartedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	return errors.Wrap(evidence.WriteManifest(fs, outDir, m), "write manifest")
}

func fileArtifact(fs afero.Fs, outDir, rel, collector string) collectors.Artifact {
	a := collectors.Artifact{
		RelativePath: rel,
		Collector:    collector,
		CollectedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	sum, size, err := evidence.SHA256File(fs, filepath.Join(outDir, filepath.FromSlash(rel)))
	if err != nil {
		a.Metadata = map[string]string{"error": err.Error()}
		return a
	}
	a.SHA256, a.SizeBytes = sum, size
	return a
}

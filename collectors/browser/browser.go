// Package browser preserves and samples browser history stores. Stores may be
// locked by a running browser, so each one is copied into the vault first and
// only the copy is queried.
package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"livecollect/collectors"
	"livecollect/collectors/platform"
	"livecollect/evidence"
)

// Source is one history store to preserve.
type Source struct {
	Label string
	Path  string
	Kind  Kind
}

// Sources expands the configured locations into stores: the Chromium
// histories plus places.sqlite of every Firefox profile directory. notes
// carries informational lines for locations that could not be expanded.
func Sources(fs afero.Fs, loc platform.BrowserLocations) (sources []Source, notes []string) {
	sources = append(sources,
		Source{Label: "Chrome", Path: loc.Chrome, Kind: Chromium},
		Source{Label: "Edge", Path: loc.Edge, Kind: Chromium},
	)

	if ok, _ := afero.DirExists(fs, loc.FirefoxProfile); !ok {
		return sources, []string{"Firefox profiles folder not found: " + loc.FirefoxProfile}
	}
	entries, err := afero.ReadDir(fs, loc.FirefoxProfile)
	if err != nil {
		return sources, []string{fmt.Sprintf("Firefox profiles folder unreadable: %s: %v", loc.FirefoxProfile, err)}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sources = append(sources, Source{
			Label: "Firefox_" + e.Name(),
			Path:  filepath.Join(loc.FirefoxProfile, e.Name(), "places.sqlite"),
			Kind:  Firefox,
		})
	}
	return sources, nil
}

type Collector struct {
	fs        afero.Fs
	vault     *evidence.Vault
	locations platform.BrowserLocations
	limit     int
}

// NewCollector builds the collector. limit caps the sampled visits per store.
func NewCollector(fs afero.Fs, vault *evidence.Vault, loc platform.BrowserLocations, limit int) *Collector {
	if limit <= 0 {
		limit = 25
	}
	return &Collector{fs: fs, vault: vault, locations: loc, limit: limit}
}

func (c *Collector) Name() string  { return "browser_artifacts" }
func (c *Collector) Title() string { return collectors.TitleBrowser }

func (c *Collector) Collect(ctx context.Context, rc collectors.RunContext) (string, error) {
	sources, notes := Sources(c.fs, c.locations)

	out := make([]string, 0, len(sources)+len(notes)+1)
	for _, s := range sources {
		out = append(out, c.preserve(s))
	}
	out = append(out, notes...)
	out = append(out, "\nNote: saved logins and cookies may be locked or encrypted; history stores were copied into the vault before being read.")
	return strings.Join(out, "\n"), nil
}

// preserve runs existence check, vault copy and query for one store. Every
// failure ends in a descriptive line for that store only.
func (c *Collector) preserve(s Source) string {
	if !evidence.IsFile(c.fs, s.Path) {
		return fmt.Sprintf("%s: not found (%s)", s.Label, s.Path)
	}

	a, err := c.vault.Copy(s.Path, s.Label+"_History", c.Name())
	if err != nil {
		return fmt.Sprintf("%s: ERROR copying %s: %v", s.Label, s.Path, err)
	}
	dest := a.Metadata["dest"]
	head := fmt.Sprintf("%s: copied to %s (%s, sha256 %s)", s.Label, dest, humanize.Bytes(uint64(a.SizeBytes)), a.SHA256)

	visits, err := QueryHistory(dest, s.Kind, c.limit)
	if err != nil {
		return head + fmt.Sprintf("\nCould not query '%s' table (copy retained): %v", s.Kind.table(), err)
	}
	lines := make([]string, 0, len(visits)+1)
	lines = append(lines, head, "Sample recent visits:")
	for _, v := range visits {
		lines = append(lines, v.String())
	}
	if len(visits) == 0 {
		lines = append(lines, "(no visits recorded)")
	}
	return strings.Join(lines, "\n")
}

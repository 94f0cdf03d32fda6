package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crawshaw.io/sqlite"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecollect/collectors"
	"livecollect/collectors/platform"
	"livecollect/evidence"
)

func exec(t *testing.T, conn *sqlite.Conn, query string) {
	stmt, err := conn.Prepare(query)
	require.NoError(t, err, query)
	_, err = stmt.Step()
	require.NoError(t, err, query)
	require.NoError(t, stmt.Finalize())
}

func createStore(t *testing.T, path string, kind Kind, rows int) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	conn, err := sqlite.OpenConn(path, sqlite.SQLITE_OPEN_READWRITE|sqlite.SQLITE_OPEN_CREATE)
	require.NoError(t, err)
	defer conn.Close()

	table, column := "urls", "last_visit_time"
	if kind == Firefox {
		table, column = "moz_places", "last_visit_date"
	}
	exec(t, conn, fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY, url TEXT, title TEXT, %s INTEGER)", table, column))
	for i := 1; i <= rows; i++ {
		exec(t, conn, fmt.Sprintf("INSERT INTO %s (url, title, %s) VALUES ('https://example.com/%d', 'page %d', %d)",
			table, column, i, i, int64(i)*1000000))
	}
}

func newCollector(t *testing.T, loc platform.BrowserLocations) (*Collector, *evidence.Vault, string) {
	out := t.TempDir()
	vault, err := evidence.NewVault(afero.NewOsFs(), filepath.Join(out, "artifacts"), "artifacts")
	require.NoError(t, err)
	return NewCollector(afero.NewOsFs(), vault, loc, 25), vault, out
}

func TestQueryHistoryChromium(t *testing.T) {
	path := filepath.Join(t.TempDir(), "History")
	createStore(t, path, Chromium, 30)

	visits, err := QueryHistory(path, Chromium, 25)
	require.NoError(t, err)
	require.Len(t, visits, 25)
	assert.Equal(t, "https://example.com/30", visits[0].URL)
	assert.Equal(t, "page 30", visits[0].Title)
	assert.Equal(t, int64(30000000), visits[0].Raw)
	assert.Equal(t, "https://example.com/6", visits[24].URL)
}

func TestQueryHistorySchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.sqlite")
	createStore(t, path, Firefox, 1)

	_, err := QueryHistory(path, Chromium, 25)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "'urls'")
}

func TestQueryHistoryNotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "History")
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite, just some text padding it out"), 0o600))

	_, err := QueryHistory(path, Chromium, 25)
	assert.Error(t, err)
}

func TestKindDecode(t *testing.T) {
	// 2021-01-01T00:00:00Z in both encodings.
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Chromium.decode(13253932800000000))
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Firefox.decode(1609459200000000))
	assert.True(t, Firefox.decode(0).IsZero())

	v := Visit{URL: "https://a", Title: "A", Raw: 1609459200000000, Time: Firefox.decode(1609459200000000)}
	assert.Equal(t, "https://a | A | 1609459200000000 (2021-01-01T00:00:00Z)", v.String())
}

func TestCollectorMissingEverything(t *testing.T) {
	base := t.TempDir()
	loc := platform.BrowserLocations{
		Chrome:         filepath.Join(base, "chrome", "History"),
		Edge:           filepath.Join(base, "edge", "History"),
		FirefoxProfile: filepath.Join(base, "no-such-profiles"),
	}
	c, vault, _ := newCollector(t, loc)

	body, err := c.Collect(context.Background(), collectors.RunContext{})
	require.NoError(t, err)

	assert.Equal(t, collectors.TitleBrowser, c.Title())
	assert.Contains(t, body, "Chrome: not found ("+loc.Chrome+")")
	assert.Contains(t, body, "Edge: not found ("+loc.Edge+")")
	assert.Equal(t, 1, strings.Count(body, "Firefox profiles folder not found: "+loc.FirefoxProfile))
	assert.Empty(t, vault.Artifacts())
}

func TestCollectorCopiesAndQueries(t *testing.T) {
	base := t.TempDir()
	loc := platform.BrowserLocations{
		Chrome:         filepath.Join(base, "chrome", "History"),
		Edge:           filepath.Join(base, "edge", "History"),
		FirefoxProfile: filepath.Join(base, "Profiles"),
	}
	createStore(t, loc.Chrome, Chromium, 3)
	require.NoError(t, os.MkdirAll(filepath.Dir(loc.Edge), 0o755))
	require.NoError(t, os.WriteFile(loc.Edge, []byte("corrupt"), 0o600))
	createStore(t, filepath.Join(loc.FirefoxProfile, "a1.default", "places.sqlite"), Firefox, 2)
	createStore(t, filepath.Join(loc.FirefoxProfile, "b2.dev-edition", "places.sqlite"), Firefox, 1)
	require.NoError(t, os.WriteFile(filepath.Join(loc.FirefoxProfile, "profiles.ini"), []byte("[General]"), 0o600))

	c, vault, out := newCollector(t, loc)
	body, err := c.Collect(context.Background(), collectors.RunContext{})
	require.NoError(t, err)

	assert.Contains(t, body, "Chrome: copied to "+filepath.Join(out, "artifacts", "Chrome_History_copy"))
	assert.Contains(t, body, "https://example.com/3 | page 3 | 3000000")
	assert.Contains(t, body, "Edge: copied to "+filepath.Join(out, "artifacts", "Edge_History_copy"))
	assert.Contains(t, body, "Could not query 'urls' table (copy retained)")
	assert.Contains(t, body, "Firefox_a1.default: copied to")
	assert.Contains(t, body, "Firefox_b2.dev-edition: copied to")
	assert.NotContains(t, body, "profiles.ini")

	arts := vault.Artifacts()
	require.Len(t, arts, 4)
	assert.Equal(t, "artifacts/Firefox_a1.default_History_copy", arts[2].RelativePath)
	assert.Equal(t, "artifacts/Firefox_b2.dev-edition_History_copy", arts[3].RelativePath)

	// The undecodable Edge store keeps its raw copy.
	b, err := os.ReadFile(filepath.Join(out, "artifacts", "Edge_History_copy"))
	require.NoError(t, err)
	assert.Equal(t, "corrupt", string(b))
}

func TestSourcesFirefoxProfiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p/one", 0o755))
	require.NoError(t, fs.MkdirAll("/p/two", 0o755))

	sources, notes := Sources(fs, platform.BrowserLocations{Chrome: "/c", Edge: "/e", FirefoxProfile: "/p"})
	assert.Empty(t, notes)
	require.Len(t, sources, 4)
	assert.Equal(t, Source{Label: "Firefox_one", Path: filepath.Join("/p", "one", "places.sqlite"), Kind: Firefox}, sources[2])
	assert.Equal(t, "Firefox_two", sources[3].Label)
}

package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecollect/collectors"
)

var header = Header{Generated: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), Host: "WS01", User: "analyst"}

func TestWriterSectionsAreReadableAfterEveryAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	w, err := Create(afero.NewOsFs(), path, header)
	require.NoError(t, err)
	defer w.Close()

	titles := []string{collectors.TitleSystem, collectors.TitleProcesses, collectors.TitleDrivers}
	for i, title := range titles {
		require.NoError(t, w.Append(collectors.Section{Title: title, Body: "body " + title + "\n"}))

		// Read while the writer still holds the file open, as a crash would leave it.
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		doc, err := Parse(bytes.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, titles[:i+1], doc.Titles())
		assert.Equal(t, i+1, w.Sections())
	}
}

func TestWriterFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := Create(fs, "/out/report.txt", header)
	require.NoError(t, err)
	assert.Equal(t, "/out/report.txt", w.Path())
	require.NoError(t, w.Append(collectors.Section{Title: collectors.TitleNotes, Body: "line one\r\nline two\r\r\n"}))
	require.NoError(t, w.Close())

	b, err := afero.ReadFile(fs, "/out/report.txt")
	require.NoError(t, err)

	rule := strings.Repeat("#", 80)
	want := "Live Forensic Collection Report\n" +
		"Generated: 2024-05-01T10:30:00Z\n" +
		"Host: WS01\n" +
		"User: analyst\n" +
		"\n" +
		rule + "\nNOTES\n" + rule + "\nline one\nline two\n\n"
	assert.Equal(t, want, string(b))

	doc, err := Parse(bytes.NewReader(b))
	require.NoError(t, err)
	require.Len(t, doc.Header, 4)
	for _, l := range doc.Header {
		assert.NotEmpty(t, l)
	}
	assert.Equal(t, "line one\nline two", doc.Sections[0].Body)
}

func TestWriterAppendAfterClose(t *testing.T) {
	w, err := Create(afero.NewMemMapFs(), "/report.txt", Header{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Error(t, w.Append(collectors.Section{Title: "X", Body: "y"}))
}

func TestHeaderUnknowns(t *testing.T) {
	lines := Header{Generated: header.Generated}.lines()
	assert.Equal(t, "Host: Unknown", lines[2])
	assert.Equal(t, "User: Unknown", lines[3])
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"crlf", "a\r\nb\r\n", "a\nb"},
		{"wmic", "a\r\r\nb", "a\nb"},
		{"invalid utf8", "caf\xe9", "caf\uFFFD"},
		{"trailing blank lines", "x\n\n\n", "x"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestParseTruncatedReport(t *testing.T) {
	rule := strings.Repeat("#", 80)
	in := "Live Forensic Collection Report\nGenerated: x\nHost: h\nUser: u\n\n" +
		rule + "\nSYSTEM INFORMATION\n" + rule + "\nsysteminfo out\n\n" +
		rule + "\nRUNNING PROCESSES & HASHES\n" + rule + "\npartial"

	doc, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"SYSTEM INFORMATION", "RUNNING PROCESSES & HASHES"}, doc.Titles())
	assert.Equal(t, "systeminfo out", doc.Sections[0].Body)
	assert.Equal(t, "partial", doc.Sections[1].Body)
}

func TestParseKeepsRuleFramedBodyText(t *testing.T) {
	rule := strings.Repeat("#", 80)
	fs := afero.NewMemMapFs()
	w, err := Create(fs, "/report.txt", header)
	require.NoError(t, err)

	crontab := rule + "\n# cron header\n" + rule + "\n\n" + rule + "\nbanner\n" + rule + "\n*/5 * * * * root /opt/job.sh"
	require.NoError(t, w.Append(collectors.Section{Title: collectors.TitleDrivers, Body: crontab}))
	require.NoError(t, w.Append(collectors.Section{Title: collectors.TitleUsers, Body: "root"}))
	require.NoError(t, w.Close())

	b, err := afero.ReadFile(fs, "/report.txt")
	require.NoError(t, err)
	doc, err := Parse(bytes.NewReader(b))
	require.NoError(t, err)

	assert.Equal(t, []string{collectors.TitleDrivers, collectors.TitleUsers}, doc.Titles())
	assert.Equal(t, crontab, doc.Sections[0].Body)
	assert.Equal(t, "root", doc.Sections[1].Body)
}

package browser

import (
	"fmt"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"github.com/pkg/errors"
)

// Kind selects the history schema of a store.
type Kind int

const (
	Chromium Kind = iota
	Firefox
)

func (k Kind) table() string {
	if k == Firefox {
		return "moz_places"
	}
	return "urls"
}

func (k Kind) query() string {
	if k == Firefox {
		return "SELECT url, title, last_visit_date AS visit_time FROM moz_places " +
			"ORDER BY last_visit_date DESC LIMIT $limit"
	}
	return "SELECT url, title, last_visit_time AS visit_time FROM urls " +
		"ORDER BY last_visit_time DESC LIMIT $limit"
}

// webkitEpochOffset is the number of seconds between 1601-01-01 and 1970-01-01.
const webkitEpochOffset = 11644473600

// decode converts a raw visit timestamp; both schemas count microseconds,
// from 1601 for Chromium and from 1970 for Firefox.
func (k Kind) decode(raw int64) time.Time {
	if raw <= 0 {
		return time.Time{}
	}
	if k == Firefox {
		return time.UnixMicro(raw).UTC()
	}
	return time.Unix(raw/1e6-webkitEpochOffset, (raw%1e6)*1e3).UTC()
}

// Visit is one history row.
type Visit struct {
	URL   string
	Title string
	Raw   int64
	Time  time.Time
}

func (v Visit) String() string {
	ts := fmt.Sprint(v.Raw)
	if !v.Time.IsZero() {
		ts += " (" + v.Time.Format(time.RFC3339) + ")"
	}
	return strings.Join([]string{v.URL, v.Title, ts}, " | ")
}

// QueryHistory opens the store at path read-only and returns the most recent
// visits, newest first.
func QueryHistory(path string, kind Kind, limit int) ([]Visit, error) {
	conn, err := sqlite.OpenConn(path, sqlite.SQLITE_OPEN_READONLY|sqlite.SQLITE_OPEN_NOMUTEX)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	defer conn.Close()

	stmt, err := conn.Prepare(kind.query())
	if err != nil {
		return nil, errors.Wrapf(err, "query '%s' table", kind.table())
	}
	stmt.SetInt64("$limit", int64(limit))

	var visits []Visit
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			_ = stmt.Finalize()
			return nil, errors.Wrapf(err, "read '%s' table", kind.table())
		}
		if !hasRow {
			break
		}
		raw := stmt.GetInt64("visit_time")
		visits = append(visits, Visit{
			URL:   stmt.GetText("url"),
			Title: stmt.GetText("title"),
			Raw:   raw,
			Time:  kind.decode(raw),
		})
	}
	return visits, stmt.Finalize()
}

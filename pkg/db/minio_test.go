package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectNameRoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	name := ObjectName("daily", at, "json")
	assert.Equal(t, "reports/daily/2026/01/15/093000.json.gz", name)

	got, ok := ReportTime(name)
	assert.True(t, ok)
	assert.True(t, got.Equal(at))
}

func TestReportTimeRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{"reports/daily/latest.json.gz", "other", "reports/weekly/2026/13/40/000000.csv.gz"} {
		_, ok := ReportTime(key)
		assert.False(t, ok, key)
	}
}

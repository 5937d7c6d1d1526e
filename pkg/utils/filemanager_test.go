package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestGenerateReportFileName(t *testing.T) {
	name := GenerateReportFileName("{date}_{status}", map[string]string{"status": "error"})
	assert.True(t, strings.HasSuffix(name, "_error.txt"), name)
	assert.Equal(t, name, GenerateReportFileName(name, nil))
}

func TestWriteIncidentReport(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteIncidentReport(Incident{
		Timestamp:   time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC),
		RecordIndex: 2,
		Total:       5,
		Status:      "verification_failed",
		Message:     "Field verification failed.",
		Record:      [][2]string{{"Account", "100"}},
		Fields:      []IncidentField{{Field: "Account", Problem: "mismatch", Expected: "100", Actual: "10"}},
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Record:    3 of 5")
	assert.Contains(t, text, "Field verification failed.")
	assert.Contains(t, text, `Expected: "100"`)
	assert.Contains(t, text, `Actual:   "10"`)
}

func TestCleanOldReports(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.txt")
	fresh := filepath.Join(dir, "fresh.txt")
	other := filepath.Join(dir, "keep.db")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	removed, err := CleanOldReports(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, FileExists(old))
	assert.True(t, FileExists(fresh))
	assert.True(t, FileExists(other))

	removed, err = CleanOldReports(filepath.Join(dir, "missing"), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

// =============================================================================
// entrypilot - File Manager Utility
// =============================================================================
//
// This module provides file utilities shared by the queue store and the batch
// controller, including:
//   - Atomic file writes (temp file + rename)
//   - Incident report generation for halted batches
//   - Report file naming
//   - Retention cleanup of old reports
//
// INCIDENT REPORTS:
//   - One plain-text report per halted batch, written to reports_dir
//   - The report carries the record, the failure status and every field
//     level diagnostic, so an operator can fix the sheet or the form
//     without re-running the batch
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates dir and its parents if they don't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".entrypilot-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// REPORT FILE NAMING
// =============================================================================

// GenerateReportFileName generates a unique report file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {status}    - Failure status of the record
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name, always ending in .txt.
//
// EXAMPLE:
//   format: "{timestamp}_{status}_{uuid}"
//   params: {"status": "verification_failed"}
//   output: "20240115_143022_verification_failed_a1b2c3d4-....txt"
func GenerateReportFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".txt") {
		result += ".txt"
	}
	return result
}

// =============================================================================
// INCIDENT REPORTS
// =============================================================================

// IncidentField is one field-level diagnostic of a failed record.
type IncidentField struct {
	Field    string
	Problem  string
	Expected string
	Actual   string
}

// Incident describes why a batch halted.
type Incident struct {
	Timestamp   time.Time
	RecordIndex int
	Total       int
	Status      string
	Message     string
	Record      [][2]string
	Fields      []IncidentField
	Advance     string
}

// WriteIncidentReport writes incident to a new file in reportsDir.
//
// PARAMETERS:
//   - incident: The failure to describe.
//   - reportsDir: The directory to write the report file.
//
// RETURNS:
//   - The path to the report file.
//   - An error if writing fails.
func WriteIncidentReport(incident Incident, reportsDir string) (string, error) {
	if err := EnsureDir(reportsDir); err != nil {
		return "", err
	}

	name := GenerateReportFileName("{timestamp}_{status}_{uuid}", map[string]string{"status": incident.Status})
	reportPath := filepath.Join(reportsDir, name)

	var sb strings.Builder
	writer := bufio.NewWriter(&sb)

	// Write header.
	fmt.Fprintf(writer, "entrypilot - Incident Report\n"+
		"Generated: %s\n"+
		"Record:    %d of %d\n"+
		"Status:    %s\n"+
		"Message:   %s\n"+
		"================================================================================\n\n",
		incident.Timestamp.Format("2006-01-02 15:04:05"),
		incident.RecordIndex+1, incident.Total,
		incident.Status,
		incident.Message)

	// Write the record.
	if len(incident.Record) > 0 {
		writer.WriteString("Record Values:\n")
		for _, kv := range incident.Record {
			fmt.Fprintf(writer, "  %-18s %s\n", kv[0]+":", kv[1])
		}
		writer.WriteString("\n")
	}

	// Write each field diagnostic.
	if len(incident.Fields) > 0 {
		writer.WriteString("Field Diagnostics:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for i, f := range incident.Fields {
			fmt.Fprintf(writer, "#%d %s\n  Problem:  %s\n", i+1, f.Field, f.Problem)
			if f.Expected != "" || f.Actual != "" {
				fmt.Fprintf(writer, "  Expected: %q\n  Actual:   %q\n", f.Expected, f.Actual)
			}
		}
		writer.WriteString("\n")
	}

	if incident.Advance != "" {
		fmt.Fprintf(writer, "Advance:\n  %s\n\n", incident.Advance)
	}

	// Write footer.
	writer.WriteString("================================================================================\n" +
		"End of Incident Report\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to render incident report: %w", err)
	}
	if err := WriteFileAtomic(reportPath, []byte(sb.String())); err != nil {
		return "", fmt.Errorf("failed to write incident report: %w", err)
	}
	return reportPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldReports removes report files older than maxAge. A missing
// directory is not an error.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldReports(reportsDir string, maxAge time.Duration) (int, error) {
	if !FileExists(reportsDir) {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(reportsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".txt") {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean reports: %w", err)
	}
	return removed, nil
}

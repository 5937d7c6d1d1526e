package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchSettingsPage(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10*time.Second, cfg.Timeouts.DefaultElementWait())
	assert.Equal(t, 5*time.Second, cfg.Timeouts.CommitControlWait())
	assert.Equal(t, 7*time.Second, cfg.Timeouts.ResetWait())
	assert.Equal(t, 5*time.Second, cfg.Timeouts.ResetAfterForceWait())
	assert.Equal(t, time.Second, cfg.PacingDelay())
	assert.Equal(t, "00", cfg.TranCodeCategory)
	assert.Equal(t, cfg.Selectors.Application, cfg.Selectors.Anchor)
	require.NoError(t, cfg.Validate())
}

func TestFromYAMLKeepsExplicitValues(t *testing.T) {
	cfg, err := FromYAML([]byte(`
timeouts:
  reset_wait_ms: 1200
selectors:
  application: "#app"
host:
  picker: path
  file: ./batch.xlsx
`))
	require.NoError(t, err)

	assert.Equal(t, 1200, cfg.Timeouts.ResetWaitMs)
	assert.Equal(t, 10000, cfg.Timeouts.DefaultElementWaitMs)
	assert.Equal(t, "#app", cfg.Selectors.Application)
	assert.Equal(t, "#app", cfg.Selectors.Anchor)
	assert.Equal(t, "./batch.xlsx", cfg.Host.File)
}

func TestFromYAMLRejectsNegativeTimeouts(t *testing.T) {
	_, err := FromYAML([]byte("timeouts:\n  commit_control_wait_ms: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit_control_wait_ms")
}

func TestFromYAMLRejectsPathPickerWithoutFile(t *testing.T) {
	_, err := FromYAML([]byte("host:\n  picker: path\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host.file")
}

func TestFromYAMLRejectsUnknownLogLevel(t *testing.T) {
	_, err := FromYAML([]byte("log_level: chatty\n"))
	assert.Error(t, err)
}

func TestLoadOptionalFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entrypilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pacing_delay_ms: 250\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.PacingDelay())
}

func TestToYAMLRoundTrips(t *testing.T) {
	data, err := Default().ToYAML()
	require.NoError(t, err)

	cfg, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

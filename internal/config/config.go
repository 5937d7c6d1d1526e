// =============================================================================
// entrypilot - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the application
// configuration. Everything the automation needs to know about the host
// page (selectors, wait bounds) is supplied here rather than hard-coded, so
// the core never decides how a document exposes its fields.
//
// CONFIGURATION FILE (entrypilot.yaml):
//   state_path: ./data/queue.db
//   timeouts:
//     default_element_wait_ms: 10000
//     commit_control_wait_ms: 5000
//     reset_wait_ms: 7000
//     reset_after_force_wait_ms: 5000
//   selectors:
//     application: '[data-el-id="fldAppl"]'
//     ...
//
// ARCHITECTURE:
//   The configuration is:
//   - Explicit: one Config value with named fields, no string-keyed lookups
//   - Defaulted: defaults are applied once, at load
//   - Validated: a Config that fails Validate is never handed to a component
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "entrypilot.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the complete application configuration.
type Config struct {
	// StatePath is the SQLite file holding the persisted queue state.
	// Default: "./data/queue.db"
	StatePath string `yaml:"state_path"`

	// ReportsDir receives one incident report per halted batch.
	// Default: "./reports"
	ReportsDir string `yaml:"reports_dir"`

	// ReportRetentionDays prunes incident reports older than this many days
	// at the start of each run. 0 keeps everything.
	ReportRetentionDays int `yaml:"report_retention_days"`

	// LogFile adds a file output to the logger. Empty logs to stderr only.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// PacingDelayMs is the pause between two records of a batch. It is a
	// pacing delay for the host page, not a retry interval.
	// Default: 1000
	PacingDelayMs int `yaml:"pacing_delay_ms"`

	// PausePollMs is how often a paused batch re-checks the pause flag.
	// Default: 500
	PausePollMs int `yaml:"pause_poll_ms"`

	// TranCodeCategory is the value written into the transaction code
	// category control before the transaction code itself.
	// Default: "00"
	TranCodeCategory string `yaml:"tran_code_category"`

	Timeouts  Timeouts  `yaml:"timeouts"`
	Selectors Selectors `yaml:"selectors"`
	Browser   Browser   `yaml:"browser"`
	Host      Host      `yaml:"host"`
}

// =============================================================================
// TIMEOUTS
// =============================================================================

// Timeouts are the four operator-tunable wait bounds, in milliseconds.
// A zero value means "use the default", matching the settings page of the
// original browser tooling.
type Timeouts struct {
	// DefaultElementWaitMs bounds the wait for conditionally rendered
	// controls and for controls whose options populate asynchronously.
	DefaultElementWaitMs int `yaml:"default_element_wait_ms"`

	// CommitControlWaitMs bounds the wait for the "commit and continue"
	// control to appear.
	CommitControlWaitMs int `yaml:"commit_control_wait_ms"`

	// ResetWaitMs bounds the wait for the anchor field to empty after the
	// commit control was activated.
	ResetWaitMs int `yaml:"reset_wait_ms"`

	// ResetAfterForceWaitMs bounds the second reset wait, after the forced
	// submit control was activated.
	ResetAfterForceWaitMs int `yaml:"reset_after_force_wait_ms"`
}

// DefaultElementWait returns the element wait bound as a duration.
func (t Timeouts) DefaultElementWait() time.Duration {
	return time.Duration(t.DefaultElementWaitMs) * time.Millisecond
}

// CommitControlWait returns the commit control wait bound as a duration.
func (t Timeouts) CommitControlWait() time.Duration {
	return time.Duration(t.CommitControlWaitMs) * time.Millisecond
}

// ResetWait returns the reset wait bound as a duration.
func (t Timeouts) ResetWait() time.Duration {
	return time.Duration(t.ResetWaitMs) * time.Millisecond
}

// ResetAfterForceWait returns the post-force reset wait bound as a duration.
func (t Timeouts) ResetAfterForceWait() time.Duration {
	return time.Duration(t.ResetAfterForceWaitMs) * time.Millisecond
}

// =============================================================================
// SELECTORS
// =============================================================================

// Selectors are the stable CSS selectors of every control the automation
// touches on the host page.
type Selectors struct {
	Application      string `yaml:"application"`
	Account          string `yaml:"account"`
	TranCodeCategory string `yaml:"tran_code_category"`
	TranCode         string `yaml:"tran_code"`
	Description      string `yaml:"description"`
	Amount           string `yaml:"amount"`
	EffectiveDate    string `yaml:"effective_date"`
	SerialNumber     string `yaml:"serial_number"`
	Branch           string `yaml:"branch"`
	Center           string `yaml:"center"`

	// CommitControl commits the record and asks the form for a new entry.
	CommitControl string `yaml:"commit_control"`

	// ErrorIndicator is the prompt the host page shows when it refuses a
	// commit.
	ErrorIndicator string `yaml:"error_indicator"`

	// ForceSubmit lives inside the error indicator and forces the post.
	ForceSubmit string `yaml:"force_submit"`

	// Anchor is the field whose emptiness signals that the form reset.
	// Default: the Application selector.
	Anchor string `yaml:"anchor"`
}

// =============================================================================
// BROWSER AND HOST
// =============================================================================

// Browser describes how the live document is reached.
type Browser struct {
	// DebuggerURL attaches to an already running browser (DevTools
	// WebSocket URL). When empty a browser is launched.
	DebuggerURL string `yaml:"debugger_url"`

	// Launch is the browser binary followed by extra flags.
	Launch []string `yaml:"launch"`

	Headless bool `yaml:"headless"`

	// TargetURL selects the tab holding the host form: the first open page
	// whose URL contains it, otherwise a new page navigated to it.
	TargetURL string `yaml:"target_url"`

	// NavigationTimeoutMs bounds the initial navigation. Default: 30000
	NavigationTimeoutMs int `yaml:"navigation_timeout_ms"`
}

// NavigationTimeout returns the navigation bound as a duration.
func (b Browser) NavigationTimeout() time.Duration {
	return time.Duration(b.NavigationTimeoutMs) * time.Millisecond
}

// Host describes the native bridge process that supplies record batches.
type Host struct {
	// Command starts the native host. Default: this executable with the
	// "host" subcommand.
	Command []string `yaml:"command"`

	// Picker selects the file-selection collaborator: "tui" opens a terminal
	// file picker, "path" always answers File.
	// Default: "tui"
	Picker string `yaml:"picker"`

	// File is the workbook answered by the "path" picker.
	File string `yaml:"file"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional behaves like Load but returns the defaults when the file does
// not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// FromYAML parses, defaults and validates a YAML document.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ToYAML renders the configuration, used by `entrypilot config`.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.StatePath == "" {
		cfg.StatePath = "./data/queue.db"
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "./reports"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PacingDelayMs == 0 {
		cfg.PacingDelayMs = 1000
	}
	if cfg.PausePollMs == 0 {
		cfg.PausePollMs = 500
	}
	if cfg.TranCodeCategory == "" {
		cfg.TranCodeCategory = "00"
	}

	t := &cfg.Timeouts
	if t.DefaultElementWaitMs == 0 {
		t.DefaultElementWaitMs = 10000
	}
	if t.CommitControlWaitMs == 0 {
		t.CommitControlWaitMs = 5000
	}
	if t.ResetWaitMs == 0 {
		t.ResetWaitMs = 7000
	}
	if t.ResetAfterForceWaitMs == 0 {
		t.ResetAfterForceWaitMs = 5000
	}

	s := &cfg.Selectors
	setDefault(&s.Application, `[data-el-id="fldAppl"]`)
	setDefault(&s.Account, `[data-el-id="fldAcct"]`)
	setDefault(&s.TranCodeCategory, `[data-el-id="fldTranCodeCategory"]`)
	setDefault(&s.TranCode, `[data-el-id="fldTranCode"]`)
	setDefault(&s.Description, `[data-el-id="fldTranDescription"]`)
	setDefault(&s.Amount, `[data-el-id="fldTranAmt"]`)
	setDefault(&s.EffectiveDate, `[data-el-id="29032:25"]`)
	setDefault(&s.SerialNumber, `[data-el-id="fldSerial"]`)
	setDefault(&s.Branch, `[data-el-id="fldGLBranch"]`)
	setDefault(&s.Center, `[data-el-id="fldGLCenter"]`)
	setDefault(&s.CommitControl, `[data-el-id="addanother"]`)
	setDefault(&s.ErrorIndicator, `[data-page-id="oteBatchDetailPrompt"]`)
	setDefault(&s.ForceSubmit, `[data-el-id="btnForcePost"]`)
	setDefault(&s.Anchor, s.Application)

	if cfg.Browser.NavigationTimeoutMs == 0 {
		cfg.Browser.NavigationTimeoutMs = 30000
	}
	if cfg.Host.Picker == "" {
		cfg.Host.Picker = "tui"
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	bounds := []struct {
		name  string
		value int
	}{
		{"timeouts.default_element_wait_ms", c.Timeouts.DefaultElementWaitMs},
		{"timeouts.commit_control_wait_ms", c.Timeouts.CommitControlWaitMs},
		{"timeouts.reset_wait_ms", c.Timeouts.ResetWaitMs},
		{"timeouts.reset_after_force_wait_ms", c.Timeouts.ResetAfterForceWaitMs},
		{"pacing_delay_ms", c.PacingDelayMs},
		{"pause_poll_ms", c.PausePollMs},
		{"report_retention_days", c.ReportRetentionDays},
		{"browser.navigation_timeout_ms", c.Browser.NavigationTimeoutMs},
	}
	for _, b := range bounds {
		if b.value < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %d", b.name, b.value)
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	switch c.Host.Picker {
	case "tui":
	case "path":
		if strings.TrimSpace(c.Host.File) == "" {
			return fmt.Errorf("host.file is required when host.picker is \"path\"")
		}
	default:
		return fmt.Errorf("host.picker must be \"tui\" or \"path\", got %q", c.Host.Picker)
	}

	if strings.TrimSpace(c.StatePath) == "" {
		return fmt.Errorf("state_path is required")
	}
	return nil
}

// PacingDelay returns the delay between two records.
func (c *Config) PacingDelay() time.Duration {
	return time.Duration(c.PacingDelayMs) * time.Millisecond
}

// PausePoll returns the pause re-check interval.
func (c *Config) PausePoll() time.Duration {
	return time.Duration(c.PausePollMs) * time.Millisecond
}

package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRewritePreamble is prepended to exported logs. It asks the reader to keep
// every timestamp and the line count, and only rewrite the note text.
const DefaultRewritePreamble = "以下は振り返りメモです。各行のタイムスタンプと行数はそのまま維持し、要約せず、メモ本文のみを自然で読みやすい日本語に整形してください。\n\n"

// Config holds application configuration.
type Config struct {
	// SeekStepSeconds is the skip distance for the back/forward keys.
	SeekStepSeconds float64 `json:"seek_step_seconds"`

	// PollIntervalMS is how often the player backend is checked for availability.
	PollIntervalMS int `json:"poll_interval_ms"`

	// ReadyTimeoutMS bounds the availability poll. The adapter gives up
	// and reports the player as unavailable once it elapses.
	ReadyTimeoutMS int `json:"ready_timeout_ms"`

	// RewritePreamble replaces DefaultRewritePreamble on export when non-empty.
	RewritePreamble string `json:"rewrite_preamble,omitempty"`

	// PlayerPath is the mpv executable used by the watch command.
	PlayerPath string `json:"player_path"`

	// LogLevel is a zerolog level name ("debug", "info", "warn", ...).
	LogLevel string `json:"log_level"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SeekStepSeconds: 5,
		PollIntervalMS:  100,
		ReadyTimeoutMS:  30000,
		RewritePreamble: DefaultRewritePreamble,
		PlayerPath:      "mpv",
		LogLevel:        "info",
	}
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ReadyTimeout returns ReadyTimeoutMS as a duration.
func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutMS) * time.Millisecond
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.vodnote.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.vodnote) and repo (.vodnote) directories.
// Repo config is found by walking upward from startDir to find the nearest .vodnote/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .vodnote/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".vodnote", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.SeekStepSeconds = overlay.SeekStepSeconds
	if result.SeekStepSeconds <= 0 {
		result.SeekStepSeconds = base.SeekStepSeconds
	}

	result.PollIntervalMS = overlay.PollIntervalMS
	if result.PollIntervalMS <= 0 {
		result.PollIntervalMS = base.PollIntervalMS
	}

	result.ReadyTimeoutMS = overlay.ReadyTimeoutMS
	if result.ReadyTimeoutMS <= 0 {
		result.ReadyTimeoutMS = base.ReadyTimeoutMS
	}

	result.RewritePreamble = overlay.RewritePreamble
	if result.RewritePreamble == "" {
		result.RewritePreamble = base.RewritePreamble
	}

	result.PlayerPath = strings.TrimSpace(overlay.PlayerPath)
	if result.PlayerPath == "" {
		result.PlayerPath = base.PlayerPath
	}

	result.LogLevel = strings.TrimSpace(overlay.LogLevel)
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

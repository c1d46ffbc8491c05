package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.SeekStepSeconds != def.SeekStepSeconds {
		t.Fatalf("SeekStepSeconds = %v, want %v", cfg.SeekStepSeconds, def.SeekStepSeconds)
	}
	if cfg.RewritePreamble != DefaultRewritePreamble {
		t.Fatalf("RewritePreamble = %q, want default", cfg.RewritePreamble)
	}
	if cfg.PlayerPath != "mpv" {
		t.Fatalf("PlayerPath = %q, want %q", cfg.PlayerPath, "mpv")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	body := `{"seek_step_seconds": 10, "poll_interval_ms": 250, "player_path": "/opt/mpv/bin/mpv"}`
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SeekStepSeconds != 10 {
		t.Errorf("SeekStepSeconds = %v, want 10", cfg.SeekStepSeconds)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 250ms", cfg.PollInterval())
	}
	if cfg.PlayerPath != "/opt/mpv/bin/mpv" {
		t.Errorf("PlayerPath = %q", cfg.PlayerPath)
	}
	// untouched scalars keep defaults
	if cfg.ReadyTimeout() != 30*time.Second {
		t.Errorf("ReadyTimeout() = %v, want 30s", cfg.ReadyTimeout())
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["log_clear", "log_import"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "log_clear" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "log_clear")
	}
	if cfg.DisabledTools[1] != "log_import" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "log_import")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalConfig := `{"seek_step_seconds": 3, "disabled_tools": ["log_clear"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	repoDir := filepath.Join(repoRoot, ".vodnote")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"seek_step_seconds": 15, "disabled_tools": ["log_import"]}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.SeekStepSeconds != 15 {
		t.Errorf("SeekStepSeconds = %v, want 15 (repo override)", cfg.SeekStepSeconds)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.SeekStepSeconds != 5 {
		t.Errorf("SeekStepSeconds = %v, want 5", cfg.SeekStepSeconds)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{SeekStepSeconds: 5, DBMaxOpenConns: 5, LogLevel: "info"}
	overlay := &Config{SeekStepSeconds: 2, LogLevel: " debug "}

	result := Merge(base, overlay)

	if result.SeekStepSeconds != 2 {
		t.Errorf("SeekStepSeconds = %v, want 2 (overlay)", result.SeekStepSeconds)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
	if result.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", result.LogLevel, "debug")
	}
}

func TestMerge_NonPositiveDurationsFallBack(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{PollIntervalMS: -1, ReadyTimeoutMS: 0}

	result := Merge(base, overlay)

	if result.PollIntervalMS != 100 {
		t.Errorf("PollIntervalMS = %d, want 100", result.PollIntervalMS)
	}
	if result.ReadyTimeoutMS != 30000 {
		t.Errorf("ReadyTimeoutMS = %d, want 30000", result.ReadyTimeoutMS)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"log_clear", "log_import"}}
	overlay := &Config{DisabledTools: []string{"log_import", " video_set "}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"log_clear", "log_import", "video_set"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	repoDir := filepath.Join(tmpDir, ".vodnote")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(repoDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	found := FindRepoConfig(t.TempDir())
	if found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

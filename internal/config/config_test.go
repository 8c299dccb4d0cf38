package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docflow/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config, resolved %q", resolved)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7497" {
		t.Fatalf("unexpected api bind %q", cfg.Paths.APIBind)
	}
	if cfg.Engine.OperationTimeout != 10 {
		t.Fatalf("unexpected operation timeout %d", cfg.Engine.OperationTimeout)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_bind = " 127.0.0.1:9000 "
api_token = " secret "

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Paths.APIBind != "127.0.0.1:9000" {
		t.Fatalf("api bind not trimmed: %q", cfg.Paths.APIBind)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("api token not trimmed: %q", cfg.Paths.APIToken)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "data", "docflow.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name     string
		contents string
		want     string
	}{
		{
			name:     "bad format",
			contents: "[logging]\nformat = \"xml\"\n",
			want:     "logging.format",
		},
		{
			name:     "bad level",
			contents: "[logging]\nlevel = \"verbose\"\n",
			want:     "logging.level",
		},
		{
			name:     "bad timeout",
			contents: "[engine]\noperation_timeout = 0\n",
			want:     "operation_timeout",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".toml")
			if err := os.WriteFile(path, []byte(tc.contents), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, sub := range []string{"data", "logs"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", sub, err)
		}
	}
}

func TestSampleConfigIsEmbedded(t *testing.T) {
	sample := config.SampleConfig()
	if !strings.Contains(sample, "[paths]") || !strings.Contains(sample, "operation_timeout") {
		t.Fatal("sample config missing expected sections")
	}
}

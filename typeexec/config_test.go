package typeexec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "typeflow.yaml", `
maxIterations: 500
strictMerge: true
logLevel: debug
concurrency: 3
enableCache: true
cacheSize: 10
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	opts := c.Apply(DefaultOptions())
	if opts.MaxIterations != 500 || !opts.StrictMerge || opts.LogLevel != "debug" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.LogMaxLocals != 6 || opts.LogTimeFormat != DefaultLogTimeFormat {
		t.Errorf("unset fields lost their defaults: %+v", opts)
	}
	bo := c.BatchOptions()
	if bo.Concurrency != 3 || bo.Cache == nil || bo.Cache.limit != 10 {
		t.Errorf("unexpected batch options: %+v", bo)
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeConfig(t, "typeflow.toml", `
max_iterations = 0
log_level = "info"
log_time_format = "%H:%M"
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	opts := c.Apply(DefaultOptions())
	if opts.MaxIterations != 0 {
		t.Errorf("explicit zero not applied: %d", opts.MaxIterations)
	}
	if opts.StrictMerge || opts.LogLevel != "info" || opts.LogTimeFormat != "%H:%M" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if c.BatchOptions().Cache != nil {
		t.Error("cache enabled without enable_cache")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name, file, content, want string
	}{
		{"unknown yaml key", "c.yaml", "maxIteration: 3\n", "maxIteration"},
		{"unknown toml key", "c.toml", "strict = true\n", `unknown key "strict"`},
		{"negative iterations", "c.yml", "maxIterations: -1\n", "must not be negative"},
		{"bad level", "c.yaml", "logLevel: loud\n", `unknown log level "loud"`},
		{"extension", "c.json", "{}", "unsupported extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestParseYAMLConfigEmpty(t *testing.T) {
	c, err := ParseYAMLConfig(nil)
	if err != nil {
		t.Fatalf("empty config: %v", err)
	}
	if got := c.Apply(DefaultOptions()); got != DefaultOptions() {
		t.Errorf("empty config changed options: %+v", got)
	}
}

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/weiihann/wasmbench/harness"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, path, err := Load(LoadOptions{SearchDirs: []string{t.TempDir()}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if path != "" {
		t.Errorf("config file = %q, want none", path)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("listen = %q, want :9090", cfg.Listen)
	}
	if !cfg.Native {
		t.Error("native module should be enabled by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadYAMLFromSearchDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wasmbench.yaml", `
log_level: debug
native: false
modules:
  - name: go-parser
    path: modules/goparser/goparser.wasm
    convention: wasi
    entry_points: [parseJson]
  - name: rust-parser
    path: rust.wasm
    convention: linear
    alloc: my_alloc
`)

	cfg, path, err := Load(LoadOptions{SearchDirs: []string{dir}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if path != filepath.Join(dir, "wasmbench.yaml") {
		t.Errorf("config file = %q, want %q", path, filepath.Join(dir, "wasmbench.yaml"))
	}
	if cfg.Native {
		t.Error("native = true, want false")
	}
	if cfg.Level() != log.DebugLevel {
		t.Errorf("level = %v, want debug", cfg.Level())
	}
	if len(cfg.Modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(cfg.Modules))
	}

	goParser := cfg.Modules[0]
	if goParser.Convention != harness.ConventionWASI {
		t.Errorf("convention = %q, want wasi", goParser.Convention)
	}
	if len(goParser.EntryPoints) != 1 || goParser.EntryPoints[0] != "parseJson" {
		t.Errorf("entry points = %v, want [parseJson]", goParser.EntryPoints)
	}
	if cfg.Modules[1].Alloc != "my_alloc" {
		t.Errorf("alloc = %q, want my_alloc", cfg.Modules[1].Alloc)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, _, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("WASMBENCH_LISTEN", ":7070")
	t.Setenv("WASMBENCH_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("unrelated", "", "")

	if err := flags.Parse([]string{"--log-level=error"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, _, err := Load(LoadOptions{SearchDirs: []string{t.TempDir()}, Flags: flags})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen != ":7070" {
		t.Errorf("listen = %q, want :7070 from env", cfg.Listen)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("log level = %q, want error from flag", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	wasi := harness.Spec{Name: "go-parser", Path: "x.wasm", Convention: harness.ConventionWASI, EntryPoints: []string{"parseJson"}}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
		{name: "negative parallelism", mutate: func(c *Config) { c.Parallelism = -1 }, wantErr: "parallelism"},
		{name: "invalid module", mutate: func(c *Config) {
			c.Modules = []harness.Spec{{Name: "x", Convention: "cobol"}}
		}, wantErr: "modules[0]"},
		{name: "duplicate module", mutate: func(c *Config) {
			c.Modules = []harness.Spec{wasi, wasi}
		}, wantErr: "more than once"},
		{name: "shadows native", mutate: func(c *Config) {
			s := wasi
			s.Name = NativeModuleName
			c.Modules = []harness.Spec{s}
		}, wantErr: "more than once"},
		{name: "native disabled frees the name", mutate: func(c *Config) {
			s := wasi
			s.Name = NativeModuleName
			c.Native = false
			c.Modules = []harness.Spec{s}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteTOML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Modules = []harness.Spec{{
		Name:        "rust-parser",
		Path:        "rust.wasm",
		Convention:  harness.ConventionLinear,
		EntryPoints: []string{"parseJson"},
	}}

	var buf bytes.Buffer
	if err := cfg.WriteTOML(&buf); err != nil {
		t.Fatalf("WriteTOML failed: %v", err)
	}

	var decoded Config
	if err := toml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not TOML: %v\n%s", err, buf.String())
	}

	if decoded.Listen != cfg.Listen {
		t.Errorf("listen = %q, want %q", decoded.Listen, cfg.Listen)
	}
	if len(decoded.Modules) != 1 || decoded.Modules[0].Convention != harness.ConventionLinear {
		t.Errorf("modules = %+v, want one linear module", decoded.Modules)
	}
}

func TestDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("dir = %q, want /tmp/xdg/wasmbench", dir)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if len(cfg.Services) != 3 {
		t.Fatalf("expected 3 bundled services, got %+v", cfg.Services)
	}
	for _, svc := range cfg.Services {
		if svc.Command == "" || len(svc.Args) == 0 || svc.Args[0] != "serve" {
			t.Errorf("bundled service must self-spawn via serve: %+v", svc)
		}
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay.Std() != time.Second {
		t.Errorf("retry defaults = %+v", cfg.Retry)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file is not an error: %v", err)
	}
	if len(cfg.Services) != 3 {
		t.Errorf("expected defaults, got %+v", cfg.Services)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routeact.yaml")
	doc := `
services:
  - name: weather
    command: /usr/local/bin/weatherd
retrieval:
  max_candidates: 2
  engine: index
retry:
  max_attempts: 5
  base_delay: 250ms
script_budget: 10s
database_path: /data/travel.sqlite
model:
  name: test-model
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Services) != 1 || cfg.Services[0].Command != "/usr/local/bin/weatherd" {
		t.Errorf("services = %+v", cfg.Services)
	}
	if cfg.Retrieval.MaxCandidates != 2 || cfg.Retrieval.Engine != "index" {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelay.Std() != 250*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.ScriptBudget.Std() != 10*time.Second {
		t.Errorf("script budget = %v", cfg.ScriptBudget.Std())
	}
	if cfg.DatabasePath != "/data/travel.sqlite" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.Model.Name != "test-model" {
		t.Errorf("model = %+v", cfg.Model)
	}
}

func TestLoad_DatabasePathReachesSqliteService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routeact.yaml")
	if err := os.WriteFile(path, []byte("database_path: /data/travel.sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	found := false
	for _, svc := range cfg.Services {
		for i := 0; i < len(svc.Args)-1; i++ {
			if svc.Args[i] == "--db-path" {
				found = true
				if svc.Args[i+1] != "/data/travel.sqlite" {
					t.Errorf("service %s db path = %q, want /data/travel.sqlite", svc.Name, svc.Args[i+1])
				}
			}
		}
	}
	if !found {
		t.Fatal("no service carries the --db-path argument")
	}
}

func TestLoad_RejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"nameless service":  "services:\n  - command: /bin/x\n",
		"duplicate service": "services:\n  - {name: a, command: /bin/x}\n  - {name: a, command: /bin/y}\n",
		"bad engine":        "retrieval:\n  engine: quantum\n",
		"bad duration":      "retry:\n  base_delay: soon\n",
	}
	for name, doc := range cases {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// Package config loads the pipeline configuration: which tool services
// to spawn, retrieval and retry tuning, the script budget and the model
// name. Configuration is a YAML file; the two API secrets come from the
// process environment, never from the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "1500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard-library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServiceSpec describes one tool service subprocess.
type ServiceSpec struct {
	// Name identifies the service in logs and descriptors.
	Name string `yaml:"name"`

	// Command is the executable to spawn.
	Command string `yaml:"command"`

	// Args are passed to the command.
	Args []string `yaml:"args,omitempty"`

	// Env adds environment entries of the form KEY=VALUE.
	Env []string `yaml:"env,omitempty"`
}

// RetrievalConfig tunes candidate selection.
type RetrievalConfig struct {
	// MaxCandidates caps the tools offered to an executor.
	MaxCandidates int `yaml:"max_candidates"`

	// MinScore is the relevance floor for the indexed retriever.
	MinScore float64 `yaml:"min_score"`

	// Engine selects the retriever: "keyword" or "index".
	Engine string `yaml:"engine"`
}

// RetryConfig tunes the rate-limit retry policy.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
}

// ModelConfig selects the language model.
type ModelConfig struct {
	Name      string `yaml:"name,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
}

// Config is the full pipeline configuration.
type Config struct {
	Services     []ServiceSpec   `yaml:"services"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	Retry        RetryConfig     `yaml:"retry"`
	ScriptBudget Duration        `yaml:"script_budget"`
	Model        ModelConfig     `yaml:"model"`

	// DatabasePath is the SQLite file for the database service. It is
	// applied to every service entry that takes a --db-path argument, so
	// overriding it alone repoints the bundled catalog.
	DatabasePath string `yaml:"database_path"`
}

// Default returns a configuration that spawns the bundled tool services
// from the current executable's serve subcommands.
func Default() Config {
	exe, err := os.Executable()
	if err != nil {
		exe = "routeact"
	}
	dbPath := "travel.sqlite"
	return Config{
		Services: []ServiceSpec{
			{Name: "weather", Command: exe, Args: []string{"serve", "weather"}},
			{Name: "math", Command: exe, Args: []string{"serve", "math"}},
			{Name: "sqlite", Command: exe, Args: []string{"serve", "sqlite", "--db-path", dbPath}},
		},
		Retrieval: RetrievalConfig{
			MaxCandidates: 4,
			MinScore:      0.1,
			Engine:        "keyword",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   Duration(time.Second),
		},
		ScriptBudget: Duration(30 * time.Second),
		DatabasePath: dbPath,
	}
}

// Load reads a YAML file over the defaults. A missing file returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	cfg.applyDatabasePath()
	return cfg, nil
}

// applyDatabasePath points every service that takes a --db-path argument
// at the configured database file.
func (c *Config) applyDatabasePath() {
	if c.DatabasePath == "" {
		return
	}
	for si, svc := range c.Services {
		for i := 0; i < len(svc.Args)-1; i++ {
			if svc.Args[i] == "--db-path" {
				c.Services[si].Args[i+1] = c.DatabasePath
			}
		}
	}
}

func (c Config) validate() error {
	seen := map[string]bool{}
	for _, svc := range c.Services {
		if svc.Name == "" || svc.Command == "" {
			return fmt.Errorf("config: service entries need name and command: %+v", svc)
		}
		if seen[svc.Name] {
			return fmt.Errorf("config: duplicate service %q", svc.Name)
		}
		seen[svc.Name] = true
	}
	if c.Retrieval.MaxCandidates < 0 {
		return fmt.Errorf("config: max_candidates must not be negative")
	}
	if e := c.Retrieval.Engine; e != "" && e != "keyword" && e != "index" {
		return fmt.Errorf("config: unknown retrieval engine %q", e)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("config: max_attempts must not be negative")
	}
	return nil
}

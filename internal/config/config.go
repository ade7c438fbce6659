package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	WorkItemsFromStore = "store"
	WorkItemsFromHTTP  = "http"
)

// Config models okrhub.yml.
type Config struct {
	Project struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	} `yaml:"project"`
	Store struct {
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Server struct {
		Addr                   string `yaml:"addr"`
		BasePath               string `yaml:"base_path"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"server"`
	WorkItems struct {
		Source  string `yaml:"source"`
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"work_items"`
	Bootstrap struct {
		TimeFrameName string `yaml:"time_frame_name"`
		Compensate    bool   `yaml:"compensate"`
	} `yaml:"bootstrap"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with okr config init --project <name>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Project.Name) == "" {
		return fmt.Errorf("config.project.name is required")
	}
	switch c.Store.Driver {
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("config.store.driver must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Store.Driver)
	}
	switch c.WorkItems.Source {
	case WorkItemsFromStore:
	case WorkItemsFromHTTP:
		if c.WorkItems.BaseURL == "" {
			return fmt.Errorf("config.work_items.base_url is required when source is %s", WorkItemsFromHTTP)
		}
	default:
		return fmt.Errorf("config.work_items.source must be %q or %q, got %q", WorkItemsFromStore, WorkItemsFromHTTP, c.WorkItems.Source)
	}
	if strings.TrimSpace(c.Bootstrap.TimeFrameName) == "" {
		return fmt.Errorf("config.bootstrap.time_frame_name is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "okrhub.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(projectName string) string {
	return fmt.Sprintf(defaultTemplate, projectName)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a project.
func Default(projectName string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(projectName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// YAML renders the config.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

const defaultTemplate = `project:
  name: %q
  url: ""

store:
  driver: sqlite

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  allow_legacy_actor_header: false

work_items:
  source: store
  base_url: ""
  token: ""

bootstrap:
  time_frame_name: Current
  compensate: true
`

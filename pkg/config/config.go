package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

type Config struct {
	DefaultSettings DefaultSettings   `yaml:"default_settings"`
	Paths           Paths             `yaml:"paths"`
	Models          map[string]string `yaml:"models"`
	Database        Database          `yaml:"database"`
	Elastic         Elastic           `yaml:"elastic"`
}

type DefaultSettings struct {
	Timeout int `yaml:"timeout"`
	Workers int `yaml:"workers"`
}

// Paths are resolved against the directory of the loaded config file when
// relative.
type Paths struct {
	ConfigDir string `yaml:"config_dir"`
	DataDir   string `yaml:"data_dir"`
	ModelDir  string `yaml:"model_dir"`
}

type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Elastic struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

func Default() *Config {
	return &Config{
		DefaultSettings: DefaultSettings{
			Timeout: 10,
			Workers: 4,
		},
		Paths: Paths{
			ConfigDir: "config",
			DataDir:   "cached_data",
			ModelDir:  "models",
		},
		Database: Database{
			Host: "localhost",
			Port: 5432,
			User: "postgres",
		},
		Elastic: Elastic{
			URL:   "http://localhost:9200",
			Index: "rnnvis_configs",
		},
	}
}

type Manager struct {
	config     *Config
	configPath string
	explicit   bool
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		explicit:   configPath != "",
	}
}

// LoadConfig reads the config file. An explicitly given path must exist;
// when the path was discovered and nothing is found the defaults are used.
func (m *Manager) LoadConfig() error {
	if m.configPath == "" {
		m.configPath = m.findConfigFile()
	}

	if DebugLog != nil {
		DebugLog("loading config from %s", m.configPath)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		if m.explicit {
			return fmt.Errorf("config file not found at %s. Please create one based on config/config.yaml.example", m.configPath)
		}
		if DebugLog != nil {
			DebugLog("no config file found, using defaults")
		}
		cfg := Default()
		cfg.applyEnvOverrides()
		m.config = cfg
		return nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()
	config.Paths.resolve(filepath.Dir(m.configPath))

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if DebugLog != nil && len(config.Models) > 0 {
		DebugLog("%d extra model(s) registered in config", len(config.Models))
	}

	m.config = config
	return nil
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

func (m *Manager) ConfigPath() string {
	return m.configPath
}

func (m *Manager) findConfigFile() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}

	if path := GetDefaultConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config/config.yaml"
}

func (m *Manager) validateConfig(config *Config) error {
	if config.DefaultSettings.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}

	if config.DefaultSettings.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	for name, file := range config.Models {
		if name == "" || file == "" {
			return fmt.Errorf("model registry entries need a name and a file")
		}
	}

	if config.Database.Enabled && config.Database.Port <= 0 {
		return fmt.Errorf("database port must be greater than 0")
	}

	if config.Elastic.Enabled && config.Elastic.URL == "" {
		return fmt.Errorf("elastic url is required when elastic is enabled")
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RNNVIS_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("RNNVIS_ES_PASSWORD"); v != "" {
		c.Elastic.Password = v
	}
}

func (p *Paths) resolve(base string) {
	for _, dir := range []*string{&p.ConfigDir, &p.DataDir, &p.ModelDir} {
		if *dir != "" && !filepath.IsAbs(*dir) {
			*dir = filepath.Join(base, *dir)
		}
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Settings are the non-secret tunables, loadable from a YAML file.
type Settings struct {
	ServiceName       string `yaml:"service_name"`
	Environment       string `yaml:"environment"`
	ListenAddr        string `yaml:"listen_addr"`
	LogDir            string `yaml:"log_dir"`
	LogLevel          string `yaml:"log_level"`
	AuthorizeEndpoint string `yaml:"authorize_endpoint"`
}

// SetDefaults fills in sensible default values for any unset field.
func (s *Settings) SetDefaults() {
	if s.ServiceName == "" {
		s.ServiceName = "plutus-voice-agent"
	}
	if s.Environment == "" {
		s.Environment = "development"
	}
	if s.ListenAddr == "" {
		s.ListenAddr = ":80"
	}
	if s.LogDir == "" {
		s.LogDir = "logs"
	}
	if s.AuthorizeEndpoint == "" {
		s.AuthorizeEndpoint = DefaultAuthorizeEndpoint
	}
}

// LoadSettings loads settings from the specified YAML file path. An
// empty path returns defaults only.
func LoadSettings(path string) (*Settings, error) {
	var settings Settings
	if path == "" {
		settings.SetDefaults()
		return &settings, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of settings file: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file '%s': %w", absPath, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML settings file: %w", err)
	}
	settings.SetDefaults()
	return &settings, nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"gopkg.in/yaml.v3"
)

var ErrNoDestinations = errors.New("configuration contains no destinations")

// DefaultDestination is the destination name used when none is configured,
// matching the tenant binding the service historically shipped with.
const DefaultDestination = "ias_api"

type Server struct {
	Address string `yaml:"address"`
}

// Destination names one SCIM tenant endpoint with its credentials. Host and
// credential material are source references, so secrets can live in mounted
// files instead of the config file itself.
type Destination struct {
	Host commoncfg.SourceRef `yaml:"host"`
	Auth commoncfg.SecretRef `yaml:"auth"`
}

type Gemini struct {
	APIKey   commoncfg.SourceRef `yaml:"apiKey"`
	Model    string              `yaml:"model,omitempty"`
	Endpoint string              `yaml:"endpoint,omitempty"`
}

type Config struct {
	Server          Server                 `yaml:"server"`
	DestinationName string                 `yaml:"destinationName,omitempty"`
	Destinations    map[string]Destination `yaml:"destinations"`
	Gemini          Gemini                 `yaml:"gemini"`
}

// Load reads the YAML configuration from path. Source references are parsed
// here and resolved by their consumers.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(cfg.Destinations) == 0 {
		return nil, ErrNoDestinations
	}

	if cfg.DestinationName == "" {
		cfg.DestinationName = DefaultDestination
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	return &cfg, nil
}

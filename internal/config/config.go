// Package config loads and validates the orbit client configuration.
//
// Configuration is a strict YAML file (unknown fields are rejected),
// optionally overridden by environment variables, and validated against
// an embedded CUE schema before use.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/orbitlabs/orbit/internal/backend"
)

//go:embed schema.cue
var schemaCUE string

// configSchemaPath locates the schema definition inside schema.cue.
var configSchemaPath = cue.ParsePath("#Config")

// Environment override keys. Set ones replace the corresponding file value.
const (
	EnvContentURL  = "ORBIT_CONTENT_URL"
	EnvClientID    = "ORBIT_CLIENT_ID"
	EnvRedirectURI = "ORBIT_REDIRECT_URI"
	EnvDeviceName  = "ORBIT_DEVICE_NAME"
)

// Config is the full client configuration.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Device  DeviceConfig  `yaml:"device"`
}

// AccountConfig identifies the OAuth relier.
type AccountConfig struct {
	ContentURL  string `yaml:"content_url"`
	ClientID    string `yaml:"client_id"`
	RedirectURI string `yaml:"redirect_uri"`
}

// DeviceConfig describes the local device.
type DeviceConfig struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Capabilities []string `yaml:"capabilities"`
}

// Backend converts to the backend relier config.
func (a AccountConfig) Backend() backend.Config {
	return backend.Config{
		ContentURL:  a.ContentURL,
		ClientID:    a.ClientID,
		RedirectURI: a.RedirectURI,
	}
}

// Backend converts to the backend device config.
func (d DeviceConfig) Backend() backend.DeviceConfig {
	caps := make([]backend.Capability, 0, len(d.Capabilities))
	for _, c := range d.Capabilities {
		caps = append(caps, backend.Capability(c))
	}
	return backend.DeviceConfig{
		Name:         d.Name,
		Type:         backend.DeviceType(d.Type),
		Capabilities: caps,
	}
}

// Load reads, overrides, and validates the configuration at path.
// If envFile is non-empty it is loaded into the process environment
// first (missing file is an error; pass "" to skip).
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject typos like "client-id"
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvContentURL); v != "" {
		cfg.Account.ContentURL = v
	}
	if v := os.Getenv(EnvClientID); v != "" {
		cfg.Account.ClientID = v
	}
	if v := os.Getenv(EnvRedirectURI); v != "" {
		cfg.Account.RedirectURI = v
	}
	if v := os.Getenv(EnvDeviceName); v != "" {
		cfg.Device.Name = v
	}
}

// validate unifies the config with the embedded CUE schema.
func validate(cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	val := ctx.Encode(map[string]any{
		"account": map[string]any{
			"content_url":  cfg.Account.ContentURL,
			"client_id":    cfg.Account.ClientID,
			"redirect_uri": cfg.Account.RedirectURI,
		},
		"device": map[string]any{
			"name":         cfg.Device.Name,
			"type":         cfg.Device.Type,
			"capabilities": capabilityList(cfg.Device.Capabilities),
		},
	})
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config for validation: %w", err)
	}

	unified := schema.LookupPath(configSchemaPath).Unify(val)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func capabilityList(caps []string) []any {
	// cue's Encode wants []any; a nil slice must still encode as a list.
	out := make([]any, len(caps))
	for i, c := range caps {
		out[i] = c
	}
	return out
}

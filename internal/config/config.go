package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/pkg/kv"
)

//go:embed schema.json
var schemaJSON []byte

const (
	// DefaultPath is the configuration file read when --config is not set.
	DefaultPath = "dsvault.yaml"

	// DefaultAddress matches the Vault CLI default.
	DefaultAddress = "https://127.0.0.1:8200"

	defaultTimeout     = 30 * time.Second
	defaultMetricsPath = "/metrics"
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition

	// Env replaces the process environment for overrides when set.
	Env map[string]string
}

// Definition represents the dsvault.yaml structure
type Definition struct {
	Version int           `yaml:"version"`
	Vault   VaultConfig   `yaml:"vault"`
	KV      KVConfig      `yaml:"kv"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// VaultConfig describes how to reach and authenticate to Vault
type VaultConfig struct {
	Address    string `yaml:"address,omitempty" env:"VAULT_ADDR"`
	Namespace  string `yaml:"namespace,omitempty" env:"VAULT_NAMESPACE"`
	AuthMethod string `yaml:"auth_method,omitempty" env:"DSVAULT_AUTH_METHOD"`
	Token      string `yaml:"token,omitempty" env:"VAULT_TOKEN"`
	AuthMount  string `yaml:"auth_mount,omitempty"`
	Role       string `yaml:"role,omitempty"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	RoleID   string `yaml:"role_id,omitempty"`
	SecretID string `yaml:"secret_id,omitempty"`

	AWSRegion      string `yaml:"aws_region,omitempty" env:"AWS_REGION"`
	AWSHeaderValue string `yaml:"aws_header_value,omitempty"`
	K8sTokenPath   string `yaml:"k8s_token_path,omitempty"`

	CACert     string `yaml:"ca_cert,omitempty" env:"VAULT_CACERT"`
	ClientCert string `yaml:"client_cert,omitempty" env:"VAULT_CLIENT_CERT"`
	ClientKey  string `yaml:"client_key,omitempty" env:"VAULT_CLIENT_KEY"`
	TLSSkip    bool   `yaml:"tls_skip,omitempty" env:"VAULT_SKIP_VERIFY"`

	TimeoutMs  int  `yaml:"timeout_ms,omitempty"`
	MaxRetries *int `yaml:"max_retries,omitempty" env:"VAULT_MAX_RETRIES"`
}

// KVConfig holds defaults for the kv commands
type KVConfig struct {
	Mount string `yaml:"mount,omitempty" env:"DSVAULT_KV_MOUNT"`
}

// MetricsConfig controls the Prometheus endpoint served by long-running commands
type MetricsConfig struct {
	Port int    `yaml:"port,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Load reads dsvault.yaml when present, validates it and applies
// environment overrides. A missing file yields the defaults.
func (c *Config) Load() error {
	if c.Path == "" {
		c.Path = DefaultPath
	}

	data, err := os.ReadFile(c.Path)
	switch {
	case os.IsNotExist(err):
		if c.Logger != nil {
			c.Logger.Debug("No configuration file at %s, using defaults and environment", c.Path)
		}
		data = nil
	case err != nil:
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	if err := applyEnv(def, c.Env); err != nil {
		return err
	}
	if err := def.validate(); err != nil {
		return err
	}

	c.Definition = def
	return nil
}

// Parse decodes and schema-checks a configuration document. Empty input
// yields the defaults.
func Parse(data []byte) (*Definition, error) {
	def := &Definition{Version: 1}
	if len(strings.TrimSpace(string(data))) == 0 {
		return def, nil
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: err.Error(),
		}
	}
	if def.Version == 0 {
		def.Version = 1
	}
	return def, nil
}

func validateSchema(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return dserrors.ConfigError{
			Message:    "schema validation failed:\n  - " + strings.Join(errorMessages, "\n  - "),
			Suggestion: "Compare your dsvault.yaml with the documented fields",
		}
	}
	return nil
}

func applyEnv(def *Definition, environ map[string]string) error {
	if err := env.ParseWithOptions(def, env.Options{Environment: environ}); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid environment override",
			Suggestion: err.Error(),
		}
	}
	return nil
}

func (d *Definition) validate() error {
	if d.Version != 1 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      d.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 1' at the top of your dsvault.yaml file",
		}
	}

	if d.Vault.Address == "" {
		d.Vault.Address = DefaultAddress
	}
	u, err := url.Parse(d.Vault.Address)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dserrors.ConfigError{
			Field:      "vault.address",
			Value:      d.Vault.Address,
			Message:    "invalid Vault address",
			Suggestion: "Use format: https://hostname:8200",
		}
	}

	if d.Vault.AuthMethod == "" {
		d.Vault.AuthMethod = "token"
	}
	if d.Vault.MaxRetries != nil && *d.Vault.MaxRetries < 0 {
		return dserrors.ConfigError{
			Field:   "vault.max_retries",
			Value:   *d.Vault.MaxRetries,
			Message: "must not be negative",
		}
	}
	if (d.Vault.ClientCert == "") != (d.Vault.ClientKey == "") {
		return dserrors.ConfigError{
			Field:      "vault.client_cert",
			Message:    "client_cert and client_key must be set together",
			Suggestion: "Set both VAULT_CLIENT_CERT and VAULT_CLIENT_KEY, or neither",
		}
	}
	return nil
}

// Timeout returns the per-request timeout
func (v VaultConfig) Timeout() time.Duration {
	if v.TimeoutMs <= 0 {
		return defaultTimeout
	}
	return time.Duration(v.TimeoutMs) * time.Millisecond
}

// KVMount returns the configured default kv mount
func (c *Config) KVMount() string {
	if c.Definition == nil || c.Definition.KV.Mount == "" {
		return kv.DefaultMountPoint
	}
	return c.Definition.KV.Mount
}

// MetricsPath returns the HTTP path metrics are served on
func (m MetricsConfig) MetricsPath() string {
	if m.Path == "" {
		return defaultMetricsPath
	}
	return m.Path
}

// Vault returns the Vault section, or an error when configuration was never loaded
func (c *Config) Vault() (VaultConfig, error) {
	if c.Definition == nil {
		return VaultConfig{}, dserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}
	return c.Definition.Vault, nil
}

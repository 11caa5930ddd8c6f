// Package vault builds Vault API clients from dsvault configuration and
// performs login with the supported auth methods.
package vault

import (
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/systmms/dsvault/internal/config"
	dserrors "github.com/systmms/dsvault/internal/errors"
)

// Supported auth methods.
const (
	MethodToken      = "token"
	MethodUserpass   = "userpass"
	MethodLDAP       = "ldap"
	MethodAppRole    = "approle"
	MethodKubernetes = "kubernetes"
	MethodAWS        = "aws"
)

// DefaultK8sTokenPath is where Kubernetes mounts the service account token.
const DefaultK8sTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// NewClient creates an API client for cfg. The token from cfg, when set, is
// attached; no request is made.
func NewClient(cfg config.VaultConfig) (*api.Client, error) {
	apiCfg := api.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", apiCfg.Error)
	}

	apiCfg.Address = cfg.Address
	apiCfg.Timeout = cfg.Timeout()
	if cfg.MaxRetries != nil {
		apiCfg.MaxRetries = *cfg.MaxRetries
	}

	if cfg.CACert != "" || cfg.ClientCert != "" || cfg.TLSSkip {
		err := apiCfg.ConfigureTLS(&api.TLSConfig{
			CACert:     cfg.CACert,
			ClientCert: cfg.ClientCert,
			ClientKey:  cfg.ClientKey,
			Insecure:   cfg.TLSSkip,
		})
		if err != nil {
			return nil, dserrors.UserError{
				Message:    "Failed to configure TLS for Vault",
				Details:    err.Error(),
				Suggestion: "Check the paths in vault.ca_cert, vault.client_cert and vault.client_key",
				Err:        err,
			}
		}
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	// api.NewClient reads VAULT_TOKEN and VAULT_NAMESPACE itself; the merged
	// configuration wins.
	client.SetToken(cfg.Token)
	client.SetNamespace(strings.Trim(cfg.Namespace, "/"))
	return client, nil
}

// ValidateAuth checks that cfg carries what its auth method needs before
// anything is sent. Secrets that can be prompted for (password, secret_id)
// are not required here.
func ValidateAuth(cfg config.VaultConfig) error {
	switch cfg.AuthMethod {
	case MethodToken:
		// token may come from the keyring or VAULT_TOKEN at login time
	case MethodUserpass, MethodLDAP:
		if cfg.Username == "" {
			return dserrors.ConfigError{
				Field:      "vault.username",
				Message:    "username is required for " + cfg.AuthMethod + " authentication",
				Suggestion: "Set vault.username in dsvault.yaml",
			}
		}
	case MethodAppRole:
		if cfg.RoleID == "" {
			return dserrors.ConfigError{
				Field:      "vault.role_id",
				Message:    "role_id is required for approle authentication",
				Suggestion: "Set vault.role_id in dsvault.yaml",
			}
		}
	case MethodKubernetes, MethodAWS:
		if cfg.Role == "" {
			return dserrors.ConfigError{
				Field:      "vault.role",
				Message:    "role is required for " + cfg.AuthMethod + " authentication",
				Suggestion: "Set vault.role to the Vault role bound to this identity",
			}
		}
	default:
		return dserrors.ConfigError{
			Field:      "vault.auth_method",
			Value:      cfg.AuthMethod,
			Message:    "unsupported authentication method",
			Suggestion: "Supported methods: token, userpass, ldap, approle, kubernetes, aws",
		}
	}
	return nil
}

// AuthMount returns the mount the auth method is enabled at.
func AuthMount(cfg config.VaultConfig) string {
	if m := strings.Trim(cfg.AuthMount, "/"); m != "" {
		return m
	}
	return cfg.AuthMethod
}

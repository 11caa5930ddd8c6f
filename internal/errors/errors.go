package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/systmms/dsvault/pkg/kv"
	"github.com/systmms/dsvault/pkg/transport"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// VaultError turns a kv or sys failure into a UserError with a suggestion
// matching its kind.
func VaultError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *kv.OpError
	details := ""
	if errors.As(err, &opErr) {
		details = opErr.Msg
	}

	return UserError{
		Message:    fmt.Sprintf("vault %s failed", operation),
		Details:    details,
		Suggestion: vaultSuggestion(err),
		Err:        err,
	}
}

func vaultSuggestion(err error) string {
	var respErr *transport.ResponseError
	switch {
	case errors.Is(err, kv.ErrInvalidArgument):
		return "Check the command arguments: versions start at 1 and wrap TTLs look like '60s' or '300'"
	case errors.Is(err, kv.ErrNotFound):
		return "Check the path and mount with 'dsvault kv list' and the version history with 'dsvault kv metadata'"
	case errors.Is(err, kv.ErrAccessDenied):
		return "Check your token policy grants read on this path, or run 'dsvault login' again"
	case errors.Is(err, kv.ErrConnection):
		return "Unable to reach Vault. Check VAULT_ADDR and your network"
	case errors.Is(err, kv.ErrProtocol):
		return "The mount may not be a KV version 2 engine. Check 'dsvault mounts'"
	case errors.As(err, &respErr) && respErr.PermissionDenied():
		return "Check your token policy grants read on sys/mounts and sys/auth"
	case errors.As(err, &respErr) && respErr.StatusCode == http.StatusServiceUnavailable:
		return "Vault is sealed or in standby. Check 'vault status'"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "x509") || strings.Contains(errStr, "certificate") {
		return "Check VAULT_CACERT or set tls_skip for development servers"
	}
	return ""
}

// LoginError enhances authentication failures with method-specific context
func LoginError(method string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("vault login with %s failed", method),
		Details:    err.Error(),
		Suggestion: loginSuggestion(method, err),
		Err:        err,
	}
}

func loginSuggestion(method string, err error) string {
	errStr := err.Error()

	switch method {
	case "token":
		return "Set VAULT_TOKEN or vault.token in dsvault.yaml"
	case "userpass", "ldap":
		if strings.Contains(errStr, "invalid") {
			return "Check the username and password"
		}
	case "approle":
		if strings.Contains(errStr, "invalid") {
			return "Check role_id and secret_id; secret ids may be single-use"
		}
	case "kubernetes":
		if strings.Contains(errStr, "no such file") {
			return "Run inside a pod or set vault.k8s_token_path"
		}
		return "Check the kubernetes role binds this service account"
	case "aws":
		if strings.Contains(errStr, "credentials") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		return "Check the Vault aws role allows this IAM principal"
	}

	if strings.Contains(errStr, "permission denied") {
		return fmt.Sprintf("Check the %s role exists and the auth mount path is correct", method)
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check VAULT_ADDR"
	}
	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kv.ErrConnection) {
		return true
	}

	var respErr *transport.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusTooManyRequests || respErr.StatusCode >= http.StatusInternalServerError
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "temporary failure", "connection reset", "broken pipe"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.HasPrefix(errStr, "yaml: ") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/pkg/kv"
	"github.com/systmms/dsvault/pkg/transport"
)

func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "Connection timeout",
		Suggestion: "Check network connectivity",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Operation failed")
	assert.Contains(t, errMsg, "Details: Connection timeout")
	assert.Contains(t, errMsg, "Try: Check network connectivity")
}

func TestUserError_FallsBackToWrapped(t *testing.T) {
	t.Parallel()

	inner := stderrors.New("inner failure")
	err := errors.UserError{Err: inner}

	assert.Equal(t, "inner failure", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "vault.address",
		Value:      "invalid-url",
		Message:    "Invalid URL format",
		Suggestion: "Use format: https://hostname:8200",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "vault.address")
	assert.Contains(t, errMsg, "invalid-url")
	assert.Contains(t, errMsg, "Invalid URL format")
	assert.Contains(t, errMsg, "https://hostname:8200")
}

func TestVaultError_Suggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "not found",
			err:  &kv.OpError{Op: kv.OpRead, Path: "app", Kind: kv.ErrNotFound, Msg: "no live version at path"},
			want: "dsvault kv list",
		},
		{
			name: "access denied",
			err:  &kv.OpError{Op: kv.OpRead, Path: "app", Kind: kv.ErrAccessDenied},
			want: "token policy",
		},
		{
			name: "connection",
			err:  &kv.OpError{Op: kv.OpList, Path: "app", Kind: kv.ErrConnection},
			want: "VAULT_ADDR",
		},
		{
			name: "invalid argument",
			err:  &kv.OpError{Op: kv.OpRead, Path: "app", Kind: kv.ErrInvalidArgument},
			want: "versions start at 1",
		},
		{
			name: "protocol",
			err:  &kv.OpError{Op: kv.OpRead, Path: "app", Kind: kv.ErrProtocol},
			want: "KV version 2",
		},
		{
			name: "sys forbidden",
			err:  fmt.Errorf("failed to read sys/mounts: %w", &transport.ResponseError{StatusCode: http.StatusForbidden}),
			want: "sys/mounts",
		},
		{
			name: "sealed",
			err:  &transport.ResponseError{StatusCode: http.StatusServiceUnavailable},
			want: "sealed",
		},
		{
			name: "tls",
			err:  stderrors.New("x509: certificate signed by unknown authority"),
			want: "VAULT_CACERT",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := errors.VaultError("read", tt.err)
			require.Error(t, err)

			var userErr errors.UserError
			require.True(t, stderrors.As(err, &userErr))
			assert.Contains(t, userErr.Suggestion, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestVaultError_KeepsKind(t *testing.T) {
	t.Parallel()

	err := errors.VaultError("read", &kv.OpError{Op: kv.OpRead, Path: "app", Kind: kv.ErrNotFound, Msg: "no live version at path"})
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.Contains(t, err.Error(), "Details: no live version at path")

	assert.NoError(t, errors.VaultError("read", nil))
}

func TestLoginError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		err    error
		want   string
	}{
		{method: "token", err: stderrors.New("missing"), want: "VAULT_TOKEN"},
		{method: "userpass", err: stderrors.New("invalid username or password"), want: "username and password"},
		{method: "approle", err: stderrors.New("invalid role or secret ID"), want: "single-use"},
		{method: "kubernetes", err: stderrors.New("open /var/run/secrets/token: no such file or directory"), want: "k8s_token_path"},
		{method: "aws", err: stderrors.New("failed to retrieve credentials"), want: "AWS_PROFILE"},
		{method: "ldap", err: stderrors.New("permission denied"), want: "ldap role"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()

			err := errors.LoginError(tt.method, tt.err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), tt.method)
			assert.Contains(t, err.Error(), "Details: "+tt.err.Error())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connection kind", err: &kv.OpError{Kind: kv.ErrConnection}, want: true},
		{name: "not found", err: &kv.OpError{Kind: kv.ErrNotFound, Err: &transport.ResponseError{StatusCode: 404}}, want: false},
		{name: "rate limited", err: &transport.ResponseError{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "server error", err: &transport.ResponseError{StatusCode: http.StatusBadGateway}, want: true},
		{name: "timeout text", err: stderrors.New("i/o timeout"), want: true},
		{name: "plain", err: stderrors.New("bad input"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errors.IsRetryable(tt.err))
		})
	}
}

func TestSimplifyError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.SimplifyError(nil))

	yamlErr := fmt.Errorf("failed to parse config: %w", stderrors.New("yaml: line 3: did not find expected key"))
	var cfgErr errors.ConfigError
	require.True(t, stderrors.As(errors.SimplifyError(yamlErr), &cfgErr))
	assert.Equal(t, "Invalid YAML format", cfgErr.Message)

	fileErr := fmt.Errorf("open: %w", stderrors.New("open dsvault.yaml: no such file or directory"))
	var userErr errors.UserError
	require.True(t, stderrors.As(errors.SimplifyError(fileErr), &userErr))
	assert.Equal(t, "File or directory not found", userErr.Message)

	// file names ending in .yaml are not parse errors
	dirErr := fmt.Errorf("failed to read config: %w", stderrors.New("read dsvault.yaml: is a directory"))
	assert.Equal(t, dirErr, errors.SimplifyError(dirErr))

	plain := stderrors.New("something else")
	assert.Equal(t, plain, errors.SimplifyError(plain))

	already := errors.UserError{Message: "already friendly"}
	assert.Equal(t, already, errors.SimplifyError(already))
}

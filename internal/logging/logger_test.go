package logging_test

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/dsvault/internal/logging"
)

func TestSecret_Redacted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "secret is redacted", input: "my-secret-password"},
		{name: "empty secret is still redacted", input: ""},
		{name: "vault token is redacted", input: "hvs.CAESIJ2r7xk"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := logging.Secret(tt.input)
			assert.Equal(t, "[REDACTED]", s.String())
			assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
			assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	logger.Info("read %s", "secret/app")
	logger.Warn("version %d is deleted", 2)
	logger.Error("login failed")
	logger.Debug("GET %s", "secret/data/app")

	assert.Equal(t, strings.Join([]string{
		"✓ read secret/app",
		"⚠ version 2 is deleted",
		"✗ login failed",
		"[DEBUG] GET secret/data/app",
		"",
	}, "\n"), buf.String())
}

func TestLogger_DebugDisabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())
	assert.False(t, logger.DebugEnabled())
}

func TestLogger_Color(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logging.NewWithWriter(&buf, false, false).Info("ok")
	assert.Contains(t, buf.String(), "\033[32m")
}

func TestLogger_SecretsNeverPrinted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	token := "hvs.super-secret-token-value"
	logger.Info("token: %s", logging.Secret(token))
	logger.Debug("token: %v", logging.Secret(token))

	assert.NotContains(t, buf.String(), token)
	assert.Equal(t, 2, strings.Count(buf.String(), "[REDACTED]"))
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("line %d", i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "\n"))
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret redacted",
			input:    "The password is secret123",
			secrets:  []string{"secret123"},
			expected: "The password is [REDACTED]",
		},
		{
			name:     "multiple secrets redacted",
			input:    "role_id abcd-1234 secret_id wxyz-9876",
			secrets:  []string{"abcd-1234", "wxyz-9876"},
			expected: "role_id [REDACTED] secret_id [REDACTED]",
		},
		{
			name:     "empty secret ignored",
			input:    "This has no secrets",
			secrets:  []string{""},
			expected: "This has no secrets",
		},
		{
			name:     "short secret ignored",
			input:    "Short secret: ab",
			secrets:  []string{"ab"},
			expected: "Short secret: ab",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, logging.Redact(tt.input, tt.secrets))
		})
	}
}

func TestMaskToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hvs.****wxyz", logging.MaskToken("hvs.CAESIabcdwxyz"))
	assert.Equal(t, "s.****6789", logging.MaskToken("s.0123456789"))
	assert.Equal(t, "****6789", logging.MaskToken("root-token-6789"))
	assert.Equal(t, "[REDACTED]", logging.MaskToken("short"))
}

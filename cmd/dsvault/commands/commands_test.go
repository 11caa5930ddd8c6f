package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/systmms/dsvault/internal/config"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/pkg/transport"
	"github.com/systmms/dsvault/tests/fakes"
	"github.com/zalando/go-keyring"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func newFakeVault() *fakes.FakeVault {
	return fakes.NewFakeVault().
		WithClock(func() time.Time { return fixedNow }).
		WithKVMount("secret").
		WithKVMount("team-kv")
}

// useVault routes every command in the test through vault. Tests that call
// it must not run in parallel.
func useVault(t *testing.T, vault transport.Transport) {
	t.Helper()

	orig := newTransport
	newTransport = func(*config.Config) (transport.Transport, error) {
		return vault, nil
	}
	t.Cleanup(func() { newTransport = orig })
}

// testConfig returns a configuration isolated from the process environment.
// yaml, when not empty, is written as the configuration file.
func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dsvault.yaml")
	if yaml != "" {
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	}
	return &config.Config{
		Path:   path,
		Logger: logging.NewWithWriter(io.Discard, false, true),
		Env:    map[string]string{},
	}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	return out.String(), err
}

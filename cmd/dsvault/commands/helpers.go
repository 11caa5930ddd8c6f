package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/systmms/dsvault/internal/config"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/internal/metrics"
	"github.com/systmms/dsvault/internal/tokenstore"
	"github.com/systmms/dsvault/internal/vault"
	"github.com/systmms/dsvault/pkg/transport"
)

// newTransport builds the transport kv, mounts and watch talk through.
// Tests replace it with an in-memory Vault.
var newTransport = connectVault

// newTokenStore opens the keyring store used by login and connectVault.
var newTokenStore = tokenstore.New

// expiryWarning is how close to expiry a stored token has to be before
// commands warn about it.
const expiryWarning = 5 * time.Minute

// connectVault creates a Vault client from the loaded configuration. When
// no token is configured, the one saved by "dsvault login" is used.
func connectVault(cfg *config.Config) (transport.Transport, error) {
	vcfg, err := cfg.Vault()
	if err != nil {
		return nil, err
	}

	client, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, err
	}

	if client.Token() == "" {
		store := newTokenStore()
		account := tokenstore.Account(vcfg.Address, vcfg.Namespace)
		entry, err := store.Load(account)
		switch {
		case err == nil:
			client.SetToken(entry.Token)
			cfg.Logger.Debug("Using %s token from keyring: %s", entry.Method, logging.MaskToken(entry.Token))
			if ttl, ok := store.TTL(account); ok && ttl > 0 && ttl < expiryWarning {
				cfg.Logger.Warn("Stored token expires in %s; run 'dsvault login' to renew it", ttl.Round(time.Second))
			}
		case errors.Is(err, tokenstore.ErrNotFound):
			cfg.Logger.Debug("No stored token for %s", vcfg.Address)
		default:
			cfg.Logger.Warn("Could not read the keyring: %v", err)
		}
	}

	metrics.InitMetrics()
	return metrics.Instrument(transport.NewAPITransport(client)), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return val
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

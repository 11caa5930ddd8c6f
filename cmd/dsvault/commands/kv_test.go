package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dserrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/pkg/kv"
)

func TestKVGet_Table(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"user": "admin", "port": 5432})
	vault.SetCustomMetadata("secret", "app/config", map[string]string{"owner": "platform"})
	useVault(t, vault)

	out, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "app/config")
	require.NoError(t, err)

	assert.Contains(t, out, "== Metadata ==")
	assert.Regexp(t, `version\s+1`, out)
	assert.Regexp(t, `custom_metadata\.owner\s+platform`, out)
	assert.Regexp(t, `port\s+5432`, out)
	assert.Regexp(t, `user\s+admin`, out)
	assert.Less(t, strings.Index(out, "port"), strings.Index(out, "user"), "keys are sorted")
}

func TestKVGet_Field(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"password": "s3cret"})
	useVault(t, vault)

	out, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "app/config", "--field", "password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", out)
}

func TestKVGet_MissingField(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"user": "admin", "password": "x"})
	useVault(t, vault)

	_, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "app/config", "--field", "token")
	require.Error(t, err)

	var userErr dserrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "Available fields: password, user", userErr.Suggestion)
}

func TestKVGet_VersionAndMount(t *testing.T) {
	vault := newFakeVault()
	vault.Put("team-kv", "db", map[string]interface{}{"pw": "one"})
	vault.Put("team-kv", "db", map[string]interface{}{"pw": "two"})
	useVault(t, vault)

	out, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "db", "--mount", "team-kv", "--version", "1", "--field", "pw")
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	call, ok := vault.LastCall()
	require.True(t, ok)
	assert.Equal(t, "team-kv/data/db", call.Path)
	assert.Equal(t, "1", call.Query.Get("version"))
}

func TestKVGet_MountFromConfig(t *testing.T) {
	vault := newFakeVault()
	vault.Put("team-kv", "db", map[string]interface{}{"pw": "two"})
	useVault(t, vault)

	cfg := testConfig(t, "version: 1\nkv:\n  mount: team-kv\n")
	out, err := execute(t, NewKVCommand(cfg), "get", "db", "--field", "pw")
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestKVGet_VersionZeroRejected(t *testing.T) {
	vault := newFakeVault()
	useVault(t, vault)

	_, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "app", "--version", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrInvalidArgument)
	assert.Zero(t, vault.CallCount())
}

func TestKVGet_NotFound(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"user": "admin"})
	vault.Destroy("secret", "app/config")
	useVault(t, vault)

	_, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "app/config")
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.Contains(t, err.Error(), "dsvault kv list")
}

func TestKVGet_JSON(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"user": "admin"})
	useVault(t, vault)

	out, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "app/config", "--json")
	require.NoError(t, err)

	var got secretOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "admin", got.Data["user"])
	assert.Equal(t, 1, got.Metadata.Version)
	assert.Equal(t, fixedNow, got.Metadata.CreatedTime)
	assert.Nil(t, got.Metadata.DeletionTime)
}

func TestKVGet_WrapAndUnwrap(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"user": "admin"})
	useVault(t, vault)

	out, err := execute(t, NewKVCommand(testConfig(t, "")), "get", "app/config", "--wrap-ttl", "5m", "--json")
	require.NoError(t, err)

	var wrap wrapOutput
	require.NoError(t, json.Unmarshal([]byte(out), &wrap))
	require.NotEmpty(t, wrap.Token)
	assert.NotContains(t, out, "admin")

	call, ok := vault.LastCall()
	require.True(t, ok)
	assert.Equal(t, "300s", call.WrapTTL)

	out, err = execute(t, NewKVCommand(testConfig(t, "")), "unwrap", wrap.Token)
	require.NoError(t, err)
	assert.Regexp(t, `user\s+admin`, out)

	_, err = execute(t, NewKVCommand(testConfig(t, "")), "unwrap", wrap.Token)
	assert.Error(t, err, "wrapping tokens are single-use")
}

func TestKVList(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"a": 1})
	vault.Put("secret", "app/db/primary", map[string]interface{}{"a": 1})
	vault.Put("secret", "top", map[string]interface{}{"a": 1})
	useVault(t, vault)

	out, err := execute(t, NewKVCommand(testConfig(t, "")), "list", "app")
	require.NoError(t, err)
	assert.Equal(t, "config\ndb/\n", out)

	out, err = execute(t, NewKVCommand(testConfig(t, "")), "list", "--json")
	require.NoError(t, err)

	var keys []string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{"app/", "top"}, keys)
}

func TestKVList_Leaf(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "top", map[string]interface{}{"a": 1})
	useVault(t, vault)

	_, err := execute(t, NewKVCommand(testConfig(t, "")), "list", "top")
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestKVMetadata(t *testing.T) {
	vault := newFakeVault()
	vault.Put("secret", "app/config", map[string]interface{}{"v": 1})
	vault.Put("secret", "app/config", map[string]interface{}{"v": 2})
	vault.Put("secret", "app/config", map[string]interface{}{"v": 3})
	vault.Delete("secret", "app/config", 2)
	vault.Destroy("secret", "app/config", 1)
	useVault(t, vault)

	out, err := execute(t, NewKVCommand(testConfig(t, "")), "metadata", "app/config", "--json")
	require.NoError(t, err)

	var got metadataOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.CurrentVersion)
	require.Len(t, got.Versions, 3)
	assert.Equal(t, "destroyed", got.Versions[0].State)
	assert.Equal(t, "deleted", got.Versions[1].State)
	assert.Equal(t, "active", got.Versions[2].State)
	require.NotNil(t, got.Versions[1].DeletionTime)

	out, err = execute(t, NewKVCommand(testConfig(t, "")), "metadata", "app/config")
	require.NoError(t, err)
	assert.Regexp(t, `current_version\s+3`, out)
	assert.Regexp(t, `2\s+deleted`, out)
}

func TestKVMetadata_Denied(t *testing.T) {
	vault := newFakeVault().Deny("secret/metadata/")
	useVault(t, vault)

	_, err := execute(t, NewKVCommand(testConfig(t, "")), "metadata", "app")
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrAccessDenied)
	assert.Contains(t, err.Error(), "dsvault login")
}

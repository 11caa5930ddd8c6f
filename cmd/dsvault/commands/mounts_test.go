package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/dsvault/tests/fakes"
)

func TestBackendsCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, NewBackendsCommand(testConfig(t, "")))
	require.NoError(t, err)
	assert.Regexp(t, `kv\s+secret/\s+Key/value storage`, out)
	assert.Regexp(t, `transit\s+transit/`, out)
	assert.NotContains(t, out, "userpass")

	out, err = execute(t, NewBackendsCommand(testConfig(t, "")), "--auth")
	require.NoError(t, err)
	assert.Regexp(t, `userpass\s+userpass/`, out)
	assert.NotContains(t, out, "transit")
}

func TestMountsCommand(t *testing.T) {
	vault := newFakeVault().
		WithSecretMount("pki", fakes.FakeMount{Type: "pki", Description: "internal CA"}).
		WithSecretMount("custom", fakes.FakeMount{Type: "my-plugin"})
	useVault(t, vault)

	out, err := execute(t, NewMountsCommand(testConfig(t, "")))
	require.NoError(t, err)

	assert.Regexp(t, `custom/\s+my-plugin\s+unregistered`, out)
	assert.Regexp(t, `pki/\s+pki\s+X\.509 certificate authority\s+internal CA`, out)
	assert.Regexp(t, `secret/\s+kv \(v2\)`, out)

	call, ok := vault.LastCall()
	require.True(t, ok)
	assert.Equal(t, "sys/mounts", call.Path)
}

func TestMountsCommand_AuthJSON(t *testing.T) {
	vault := newFakeVault().
		WithAuthMount("corp-ldap", fakes.FakeMount{Type: "LDAP", Accessor: "auth_ldap_1"}).
		WithAuthMount("token", fakes.FakeMount{Type: "token"})
	useVault(t, vault)

	out, err := execute(t, NewMountsCommand(testConfig(t, "")), "--auth", "--json")
	require.NoError(t, err)

	var got []mountOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "corp-ldap/", got[0].Path)
	assert.Equal(t, "auth_ldap_1", got[0].Accessor)
	assert.True(t, got[0].Registered)
	assert.Equal(t, "token/", got[1].Path)
}

func TestMountsCommand_Denied(t *testing.T) {
	vault := newFakeVault().Deny("sys/")
	useVault(t, vault)

	_, err := execute(t, NewMountsCommand(testConfig(t, "")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sys/mounts")
}

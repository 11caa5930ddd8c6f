// Package fakes provides test doubles for the dsvault transport.
//
// FakeVault implements transport.Transport in memory. It serves KV v2 data,
// metadata and list requests, the sys/mounts and sys/auth tables, and
// response wrapping, so clients can be tested without a running Vault.
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	vault := fakes.NewFakeVault().WithKVMount("secret")
//	vault.Put("secret", "app/db", map[string]interface{}{"password": "s3cret"})
//	client := kv.NewClient(vault)
//	// Test client methods...
package fakes

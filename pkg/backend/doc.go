// Package backend provides typed identities for Vault secret engines and auth
// methods, the registries that describe the well-known kinds, and descriptors
// for mounted backend instances.
//
// # Backend Identity
//
// A backend kind ("kv", "pki", "userpass", ...) is used both as a dispatch
// key inside dsvault and as a literal token on the wire. Type carries the raw
// token and compares it case-insensitively, matching Vault's route matching:
//
//	backend.New("KV").Equal(backend.KeyValue) // true
//	backend.New("kv").Equal(backend.PKI)      // false
//
// The set of kinds is open. Vault may introduce kinds that dsvault does not
// know about, so decoding any token always yields a valid Type:
//
//	var t backend.Type
//	_ = json.Unmarshal([]byte(`"my-plugin"`), &t)
//	t.IsKnown() // false, but t is usable as a key and compares normally
//
// Use Type.Key when a map key is needed, and backend.Equal when comparing
// optional (*Type) values:
//
//	backend.Equal(nil, nil)             // true
//	backend.Equal(&backend.KeyValue, nil) // false
//
// # Registries
//
// SecretEngines and AuthMethods return the built-in registries. Each entry
// records the kind, its default mount path and a short description:
//
//	info, ok := backend.SecretEngines().Lookup(backend.New("Transit"))
//	if ok {
//	    fmt.Println(info.DefaultPath, info.Description)
//	}
//
// # Descriptors
//
// A Descriptor is one mounted, addressable backend instance as returned by
// the sys/mounts and sys/auth listings. Descriptors are immutable; the mount
// path is always normalized with a trailing slash.
package backend

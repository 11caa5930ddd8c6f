// Package kv reads from Vault's versioned key/value secrets engine (KV v2).
//
// A KV v2 mount keeps an append-only history of immutable versions for every
// logical path. Each write creates version n+1; older versions can be
// soft-deleted (reversible) or destroyed (permanent). This package exposes the
// read side of that model:
//
//   - ReadSecret reads the latest or a specific version of a secret
//   - ReadSecretPathList lists the immediate children of a folder
//   - ReadSecretMetadata returns the version history without any values
//
// # Defaults
//
// Every operation takes optional arguments with these defaults:
//
//	mount point  "secret" (or the client default set with WithDefaultMount)
//	version      latest, resolved by Vault
//	wrap TTL     disabled
//
// # Response Wrapping
//
// Passing WrapTTL asks Vault to return a single-use wrapping token instead
// of the payload. The returned Result then holds only the wrap info; the
// secret is never present at the same time:
//
//	res, err := client.ReadSecret(ctx, "app/config", kv.WrapTTL("60s"))
//	if err != nil {
//	    return err
//	}
//	if info, ok := res.WrapInfo(); ok {
//	    fmt.Println("hand this token to the consumer:", info.Token)
//	}
//
// # Errors
//
// Every error is an *OpError carrying the operation, mount and path.
// Use errors.Is with the sentinel kinds:
//
//	_, err := client.ReadSecret(ctx, "app/config", kv.Version(3))
//	switch {
//	case errors.Is(err, kv.ErrNotFound):
//	    // version 3 never existed, was deleted, or was destroyed
//	case errors.Is(err, kv.ErrAccessDenied):
//	    // token policy does not allow the read
//	}
//
// Arguments are validated before any request is sent. The client never
// retries; all operations are side-effect free and safe to retry by callers.
package kv

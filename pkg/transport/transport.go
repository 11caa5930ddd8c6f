// Package transport defines the contract between dsvault's typed clients and
// the Vault HTTP API, and provides an implementation backed by the official
// github.com/hashicorp/vault/api client.
//
// A Transport sends one request and returns the generic response envelope.
// It owns HTTP, TLS, authentication headers and any retry policy; the typed
// clients built on top of it (pkg/kv, pkg/sys) never retry.
package transport

import (
	"context"
	"net/url"
	"time"
)

// MethodList is Vault's LIST verb.
const MethodList = "LIST"

// Request describes a single Vault API call. Path is relative to /v1/.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]interface{}

	// WrapTTL asks Vault to wrap the response in a single-use token valid
	// for the given TTL ("60s", "5m", "300"). Empty disables wrapping.
	WrapTTL string
}

// Envelope is the generic Vault response body.
type Envelope struct {
	RequestID     string
	LeaseID       string
	LeaseDuration int
	Renewable     bool
	Data          map[string]interface{}
	Warnings      []string

	// WrapInfo is set instead of Data when the response was wrapped.
	WrapInfo *WrapInfo
}

// WrapInfo is the wrap_info block of a wrapped response.
type WrapInfo struct {
	Token           string
	Accessor        string
	TTL             int
	CreationTime    time.Time
	CreationPath    string
	WrappedAccessor string
}

// Transport sends requests to Vault.
//
// Send returns a nil envelope with a nil error when Vault answers with an
// empty body. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Envelope, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Envelope, error)

// Send calls f.
func (f Func) Send(ctx context.Context, req *Request) (*Envelope, error) {
	return f(ctx, req)
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"
)

// APITransport sends requests through a *api.Client. Token, namespace,
// TLS and retry settings are whatever the client was configured with.
type APITransport struct {
	client *api.Client
}

// NewAPITransport wraps client.
func NewAPITransport(client *api.Client) *APITransport {
	return &APITransport{client: client}
}

// Client returns the underlying Vault API client.
func (t *APITransport) Client() *api.Client {
	return t.client
}

// Send implements Transport.
func (t *APITransport) Send(ctx context.Context, req *Request) (*Envelope, error) {
	path := strings.TrimPrefix(req.Path, "/")

	r := t.client.NewRequest(req.Method, "/v1/"+path)
	if req.Method == MethodList {
		// Same as api.Logical.List: GET with list=true reaches every Vault
		// version and every proxy.
		r.Method = http.MethodGet
		r.Params.Set("list", "true")
	}
	for key, values := range req.Query {
		for _, v := range values {
			r.Params.Add(key, v)
		}
	}
	r.WrapTTL = req.WrapTTL
	if req.Body != nil {
		if err := r.SetJSONBody(req.Body); err != nil {
			return nil, fmt.Errorf("failed to encode request body for %s: %w", path, err)
		}
	}

	//nolint:staticcheck // the Logical helpers cannot carry a per-request wrap TTL
	resp, err := t.client.RawRequestWithContext(ctx, r)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		return nil, classify(req.Method, path, resp, err)
	}

	secret, err := api.ParseSecret(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response for %s %s: %w", req.Method, path, err)
	}
	if secret == nil {
		return nil, nil
	}
	return fromSecret(secret), nil
}

func classify(method, path string, resp *api.Response, err error) error {
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return &ResponseError{
			Method:     method,
			Path:       path,
			StatusCode: apiErr.StatusCode,
			Errors:     apiErr.Errors,
		}
	}
	if resp != nil && resp.StatusCode >= http.StatusBadRequest {
		return &ResponseError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Errors:     []string{err.Error()},
		}
	}
	return &ConnectionError{Method: method, Path: path, Err: err}
}

func fromSecret(secret *api.Secret) *Envelope {
	env := &Envelope{
		RequestID:     secret.RequestID,
		LeaseID:       secret.LeaseID,
		LeaseDuration: secret.LeaseDuration,
		Renewable:     secret.Renewable,
		Data:          secret.Data,
		Warnings:      secret.Warnings,
	}
	if w := secret.WrapInfo; w != nil {
		env.WrapInfo = &WrapInfo{
			Token:           w.Token,
			Accessor:        w.Accessor,
			TTL:             w.TTL,
			CreationTime:    w.CreationTime,
			CreationPath:    w.CreationPath,
			WrappedAccessor: w.WrappedAccessor,
		}
	}
	return env
}

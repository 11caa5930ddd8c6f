// Package sys reads Vault's mount tables and describes each mount as a
// backend.Descriptor.
package sys

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/systmms/dsvault/pkg/backend"
	"github.com/systmms/dsvault/pkg/transport"
)

// Client reads the sys/ endpoints.
type Client struct {
	transport transport.Transport
}

// NewClient creates a sys client on top of t.
func NewClient(t transport.Transport) *Client {
	return &Client{transport: t}
}

// ListSecretBackends returns the mounted secret engines sorted by path.
func (c *Client) ListSecretBackends(ctx context.Context) ([]backend.Descriptor, error) {
	return c.listMounts(ctx, "sys/mounts", backend.SecretEngine)
}

// ListAuthBackends returns the enabled auth methods sorted by path.
func (c *Client) ListAuthBackends(ctx context.Context) ([]backend.Descriptor, error) {
	return c.listMounts(ctx, "sys/auth", backend.AuthMethod)
}

// FindMount returns the secret engine mounted at path.
func (c *Client) FindMount(ctx context.Context, path string) (backend.Descriptor, bool, error) {
	mounts, err := c.ListSecretBackends(ctx)
	if err != nil {
		return backend.Descriptor{}, false, err
	}
	want := backend.NormalizeMountPath(path)
	for _, m := range mounts {
		if m.Path() == want {
			return m, true, nil
		}
	}
	return backend.Descriptor{}, false, nil
}

type mountEntry struct {
	Type        backend.Type           `mapstructure:"type"`
	Description string                 `mapstructure:"description"`
	Accessor    string                 `mapstructure:"accessor"`
	Local       bool                   `mapstructure:"local"`
	SealWrap    bool                   `mapstructure:"seal_wrap"`
	Options     map[string]string      `mapstructure:"options"`
	Config      map[string]interface{} `mapstructure:"config"`
}

func (c *Client) listMounts(ctx context.Context, path string, category backend.Category) ([]backend.Descriptor, error) {
	env, err := c.transport.Send(ctx, &transport.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if env == nil || env.Data == nil {
		return nil, fmt.Errorf("failed to read %s: empty response", path)
	}

	mounts := make([]backend.Descriptor, 0, len(env.Data))
	for mountPath, raw := range env.Data {
		fields, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		var entry mountEntry
		if err := decodeMount(fields, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode mount %s: %w", mountPath, err)
		}
		if entry.Type.IsZero() {
			continue
		}

		mounts = append(mounts, backend.NewDescriptor(
			entry.Type,
			mountPath,
			entry.Description,
			entry.Config,
			backend.WithCategory(category),
			backend.WithAccessor(entry.Accessor),
			backend.WithLocal(entry.Local),
			backend.WithSealWrap(entry.SealWrap),
			backend.WithOptions(entry.Options),
		))
	}

	sort.Slice(mounts, func(i, j int) bool {
		return mounts[i].Path() < mounts[j].Path()
	})
	return mounts, nil
}

func decodeMount(input map[string]interface{}, out *mountEntry) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       backend.DecodeHook(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

package kv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-secure-stdlib/parseutil"
)

// Option configures a single call.
type Option func(*callOptions)

type callOptions struct {
	mount      string
	mountSet   bool
	version    int
	versionSet bool
	wrapTTL    string
}

// Version selects a specific version for ReadSecret. Versions start at 1.
// Passing it to any other operation is an invalid argument.
func Version(n int) Option {
	return func(o *callOptions) {
		o.version = n
		o.versionSet = true
	}
}

// MountPoint overrides the client's default mount for one call.
func MountPoint(mount string) Option {
	return func(o *callOptions) {
		o.mount = mount
		o.mountSet = true
	}
}

// WrapTTL requests response wrapping. ttl is either an integer count of
// seconds ("300") or a duration string ("60s", "5m").
func WrapTTL(ttl string) Option {
	return func(o *callOptions) {
		o.wrapTTL = ttl
	}
}

// resolve applies opts over the client defaults and validates the result.
// op decides which options are accepted.
func (c *Client) resolve(op, path string, opts []Option) (callOptions, error) {
	o := callOptions{mount: c.mount}
	for _, opt := range opts {
		opt(&o)
	}

	o.mount = strings.Trim(o.mount, "/")
	if o.mount == "" {
		return o, invalidArgument(op, "", path, "mount point must not be empty")
	}

	if o.versionSet {
		if op != OpRead {
			return o, invalidArgument(op, o.mount, path, "version is only valid when reading a secret")
		}
		if o.version < 1 {
			return o, invalidArgument(op, o.mount, path, fmt.Sprintf("version must be at least 1, got %d", o.version))
		}
	}

	if o.wrapTTL != "" {
		ttl, err := normalizeWrapTTL(o.wrapTTL)
		if err != nil {
			return o, invalidArgument(op, o.mount, path, err.Error())
		}
		o.wrapTTL = ttl
	}
	return o, nil
}

// normalizeWrapTTL parses ttl and renders it as whole seconds.
func normalizeWrapTTL(ttl string) (string, error) {
	d, err := parseutil.ParseDurationSecond(strings.TrimSpace(ttl))
	if err != nil {
		return "", fmt.Errorf("invalid wrap TTL %q: %w", ttl, err)
	}
	if d < time.Second {
		return "", fmt.Errorf("wrap TTL %q must be at least one second", ttl)
	}
	return strconv.FormatInt(int64(d/time.Second), 10) + "s", nil
}

// cleanPath strips leading and trailing separators from a logical path.
func cleanPath(path string) string {
	return strings.Trim(path, "/")
}

package kv

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/systmms/dsvault/pkg/transport"
)

// DefaultMountPoint is the mount used when neither the client nor the call
// names one.
const DefaultMountPoint = "secret"

// Logger receives debug output. *logging.Logger satisfies it.
type Logger interface {
	Debug(format string, args ...interface{})
}

// Client reads from a KV v2 mount. It holds no mutable state and is safe
// for concurrent use when its transport is.
type Client struct {
	transport transport.Transport
	mount     string
	logger    Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDefaultMount sets the mount used when a call does not pass MountPoint.
func WithDefaultMount(mount string) ClientOption {
	return func(c *Client) {
		c.mount = mount
	}
}

// WithLogger enables debug logging of requests.
func WithLogger(l Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a KV v2 client on top of t.
func NewClient(t transport.Transport, opts ...ClientOption) *Client {
	c := &Client{transport: t, mount: DefaultMountPoint}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultMount returns the mount used when a call does not name one.
func (c *Client) DefaultMount() string {
	return c.mount
}

// ReadSecret reads the latest version of path, or the version selected with
// Version. Deleted, destroyed and never-written versions are ErrNotFound.
func (c *Client) ReadSecret(ctx context.Context, path string, opts ...Option) (Result[SecretData], error) {
	p := cleanPath(path)
	o, err := c.resolve(OpRead, p, opts)
	if err != nil {
		return Result[SecretData]{}, err
	}
	if p == "" {
		return Result[SecretData]{}, invalidArgument(OpRead, o.mount, p, "secret path must not be empty")
	}

	req := &transport.Request{
		Method:  http.MethodGet,
		Path:    o.mount + "/data/" + p,
		WrapTTL: o.wrapTTL,
	}
	if o.versionSet {
		req.Query = url.Values{"version": []string{strconv.Itoa(o.version)}}
	}

	return send(ctx, c, OpRead, o, p, req, func(data map[string]interface{}) (SecretData, error) {
		var sd SecretData
		if err := decode(data, &sd); err != nil {
			return sd, protocolError(OpRead, o.mount, p, "malformed secret", err)
		}
		if !sd.live(time.Now()) {
			return sd, notFound(OpRead, o.mount, p)
		}
		return sd, nil
	})
}

// ReadSecretPathList lists the immediate children of the folder at path.
// An empty path lists the root of the mount. A path that holds a value and
// no children is ErrNotFound.
func (c *Client) ReadSecretPathList(ctx context.Context, path string, opts ...Option) (Result[ListInfo], error) {
	p := cleanPath(path)
	o, err := c.resolve(OpList, p, opts)
	if err != nil {
		return Result[ListInfo]{}, err
	}

	listPath := o.mount + "/metadata/"
	if p != "" {
		listPath += p + "/"
	}
	req := &transport.Request{
		Method:  transport.MethodList,
		Path:    listPath,
		WrapTTL: o.wrapTTL,
	}

	return send(ctx, c, OpList, o, p, req, func(data map[string]interface{}) (ListInfo, error) {
		var li ListInfo
		if err := decode(data, &li); err != nil {
			return li, protocolError(OpList, o.mount, p, "malformed key list", err)
		}
		if len(li.Keys) == 0 {
			return li, notFound(OpList, o.mount, p)
		}
		return li, nil
	})
}

// ReadSecretMetadata returns the version history of path without any
// secret values.
func (c *Client) ReadSecretMetadata(ctx context.Context, path string, opts ...Option) (Result[FullSecretMetadata], error) {
	p := cleanPath(path)
	o, err := c.resolve(OpMetadata, p, opts)
	if err != nil {
		return Result[FullSecretMetadata]{}, err
	}
	if p == "" {
		return Result[FullSecretMetadata]{}, invalidArgument(OpMetadata, o.mount, p, "secret path must not be empty")
	}

	req := &transport.Request{
		Method:  http.MethodGet,
		Path:    o.mount + "/metadata/" + p,
		WrapTTL: o.wrapTTL,
	}

	return send(ctx, c, OpMetadata, o, p, req, func(data map[string]interface{}) (FullSecretMetadata, error) {
		var md FullSecretMetadata
		if err := decode(data, &md); err != nil {
			return md, protocolError(OpMetadata, o.mount, p, "malformed metadata", err)
		}
		if md.CurrentVersion == 0 && len(md.Versions) == 0 {
			return md, notFound(OpMetadata, o.mount, p)
		}
		return md, nil
	})
}

// UnwrapSecret redeems a wrapping token produced by ReadSecret with
// WrapTTL. The token is single-use; a second call fails.
func (c *Client) UnwrapSecret(ctx context.Context, token string) (Secret[SecretData], error) {
	const unwrapPath = "sys/wrapping/unwrap"
	if token == "" {
		return Secret[SecretData]{}, invalidArgument(OpUnwrap, "", unwrapPath, "wrapping token must not be empty")
	}

	req := &transport.Request{
		Method: http.MethodPost,
		Path:   unwrapPath,
		Body:   map[string]interface{}{"token": token},
	}
	c.debug("kv %s %s", OpUnwrap, unwrapPath)

	env, err := c.transport.Send(ctx, req)
	if err != nil {
		return Secret[SecretData]{}, classify(OpUnwrap, "", unwrapPath, err)
	}
	if env == nil || env.Data == nil {
		return Secret[SecretData]{}, protocolError(OpUnwrap, "", unwrapPath, "empty response", nil)
	}

	var sd SecretData
	if err := decode(env.Data, &sd); err != nil {
		return Secret[SecretData]{}, protocolError(OpUnwrap, "", unwrapPath, "malformed secret", err)
	}
	if !sd.live(time.Now()) {
		return Secret[SecretData]{}, notFound(OpUnwrap, "", unwrapPath)
	}
	return secretFrom(env, sd), nil
}

func (c *Client) debug(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(format, args...)
	}
}

// send performs req and turns the envelope into a Result. Wrapped responses
// skip decodeFn entirely.
func send[T any](
	ctx context.Context,
	c *Client,
	op string,
	o callOptions,
	path string,
	req *transport.Request,
	decodeFn func(map[string]interface{}) (T, error),
) (Result[T], error) {
	c.debug("kv %s %s (mount=%s wrap=%t)", op, req.Path, o.mount, o.wrapTTL != "")

	env, err := c.transport.Send(ctx, req)
	if err != nil {
		return Result[T]{}, classify(op, o.mount, path, err)
	}
	if env == nil {
		return Result[T]{}, notFound(op, o.mount, path)
	}

	if o.wrapTTL != "" {
		if env.WrapInfo == nil {
			return Result[T]{}, protocolError(op, o.mount, path, "wrapping was requested but the response is not wrapped", nil)
		}
		return wrappedResult[T](wrapInfoFrom(env.WrapInfo)), nil
	}
	if env.WrapInfo != nil {
		return Result[T]{}, protocolError(op, o.mount, path, "response is wrapped but wrapping was not requested", nil)
	}
	if env.Data == nil {
		return Result[T]{}, notFound(op, o.mount, path)
	}

	data, err := decodeFn(env.Data)
	if err != nil {
		return Result[T]{}, err
	}
	return plainResult(secretFrom(env, data)), nil
}

func secretFrom[T any](env *transport.Envelope, data T) Secret[T] {
	return Secret[T]{
		RequestID:     env.RequestID,
		LeaseID:       env.LeaseID,
		LeaseDuration: env.LeaseDuration,
		Renewable:     env.Renewable,
		Warnings:      env.Warnings,
		Data:          data,
	}
}

func wrapInfoFrom(w *transport.WrapInfo) WrapInfo {
	return WrapInfo{
		Token:        w.Token,
		Accessor:     w.Accessor,
		TTL:          time.Duration(w.TTL) * time.Second,
		CreationTime: w.CreationTime,
		CreationPath: w.CreationPath,
	}
}

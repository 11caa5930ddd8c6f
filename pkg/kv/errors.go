package kv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/dsvault/pkg/transport"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, except failures the transport reported that fit none of them.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrConnection      = errors.New("connection error")
	ErrProtocol        = errors.New("protocol error")
)

// Operation names used in OpError.
const (
	OpRead     = "read"
	OpList     = "list"
	OpMetadata = "metadata"
	OpUnwrap   = "unwrap"
)

// OpError records the operation and location of a failure.
type OpError struct {
	Op    string
	Mount string
	Path  string

	// Kind is one of the Err* sentinels, or nil.
	Kind error

	// Msg explains the failure in terms of the operation.
	Msg string

	// Err is the underlying transport or decode error, if any.
	Err error
}

func (e *OpError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kv %s %q", e.Op, e.Path)
	if e.Mount != "" {
		fmt.Fprintf(&b, " (mount %s)", e.Mount)
	}
	if e.Kind != nil {
		b.WriteString(": " + e.Kind.Error())
	}
	if e.Msg != "" {
		b.WriteString(": " + e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func invalidArgument(op, mount, path, msg string) *OpError {
	return &OpError{Op: op, Mount: mount, Path: path, Kind: ErrInvalidArgument, Msg: msg}
}

func protocolError(op, mount, path, msg string, err error) *OpError {
	return &OpError{Op: op, Mount: mount, Path: path, Kind: ErrProtocol, Msg: msg, Err: err}
}

func notFound(op, mount, path string) *OpError {
	msg := "no live version at path"
	if op == OpList {
		msg = "no folder at path (it is a leaf or does not exist)"
	}
	return &OpError{Op: op, Mount: mount, Path: path, Kind: ErrNotFound, Msg: msg}
}

// classify tags a transport failure with its kind.
func classify(op, mount, path string, err error) *OpError {
	opErr := &OpError{Op: op, Mount: mount, Path: path, Err: err}

	var respErr *transport.ResponseError
	var connErr *transport.ConnectionError
	switch {
	case errors.As(err, &respErr) && respErr.NotFound():
		opErr.Kind = ErrNotFound
		opErr.Msg = notFound(op, mount, path).Msg
	case errors.As(err, &respErr) && respErr.PermissionDenied():
		opErr.Kind = ErrAccessDenied
		opErr.Msg = "token policy denies this operation"
	case errors.As(err, &connErr):
		opErr.Kind = ErrConnection
	}
	return opErr
}

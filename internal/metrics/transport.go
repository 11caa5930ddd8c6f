package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/systmms/dsvault/pkg/transport"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeWrapped  = "wrapped"
	OutcomeNotFound = "not_found"
	OutcomeDenied   = "denied"
	OutcomeNetwork  = "network_error"
	OutcomeError    = "error"
)

// Instrument wraps next so every request is counted and timed.
// InitMetrics must be called for anything to be recorded.
func Instrument(next transport.Transport) transport.Transport {
	return transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Envelope, error) {
		start := time.Now()
		env, err := next.Send(ctx, req)
		recordRequest(OperationOf(req), outcomeOf(env, err), time.Since(start).Seconds())
		return env, err
	})
}

// OperationOf names the kind of request for labelling. The set of results
// is fixed so label cardinality stays bounded.
func OperationOf(req *transport.Request) string {
	path := strings.TrimPrefix(req.Path, "/")
	switch {
	case path == "sys/wrapping/unwrap":
		return "unwrap"
	case path == "sys/mounts" || path == "sys/auth":
		return "mounts"
	case strings.HasPrefix(path, "auth/"):
		return "login"
	case req.Method == transport.MethodList:
		return "list"
	case strings.Contains(path, "/data/"):
		return "read"
	case strings.Contains(path, "/metadata/"):
		return "metadata"
	default:
		return "other"
	}
}

func outcomeOf(env *transport.Envelope, err error) string {
	if err == nil {
		if env != nil && env.WrapInfo != nil {
			return OutcomeWrapped
		}
		return OutcomeOK
	}

	var respErr *transport.ResponseError
	var connErr *transport.ConnectionError
	switch {
	case errors.As(err, &respErr) && respErr.NotFound():
		return OutcomeNotFound
	case errors.As(err, &respErr) && respErr.PermissionDenied():
		return OutcomeDenied
	case errors.As(err, &connErr):
		return OutcomeNetwork
	default:
		return OutcomeError
	}
}

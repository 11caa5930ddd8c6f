package kv

// Result is either a decoded secret or, when wrapping was requested, the
// wrap info that replaced it. Exactly one of Secret and WrapInfo reports ok.
type Result[T any] struct {
	secret *Secret[T]
	wrap   *WrapInfo
}

func plainResult[T any](s Secret[T]) Result[T] {
	return Result[T]{secret: &s}
}

func wrappedResult[T any](w WrapInfo) Result[T] {
	return Result[T]{wrap: &w}
}

// IsWrapped reports whether the result holds wrap info.
func (r Result[T]) IsWrapped() bool {
	return r.wrap != nil
}

// Secret returns the decoded secret of an unwrapped result.
func (r Result[T]) Secret() (Secret[T], bool) {
	if r.secret == nil {
		var zero Secret[T]
		return zero, false
	}
	return *r.secret, true
}

// WrapInfo returns the wrap info of a wrapped result.
func (r Result[T]) WrapInfo() (WrapInfo, bool) {
	if r.wrap == nil {
		return WrapInfo{}, false
	}
	return *r.wrap, true
}

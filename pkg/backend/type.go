package backend

import (
	"hash/fnv"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Type identifies a backend kind by its token.
//
// Type is a comparable value, but two Types with tokens differing only in
// case are distinct under ==. Always compare with Equal, and use Key when a
// Type has to index a map.
type Type struct {
	name string
}

// Well-known secret engine kinds.
var (
	System    = New("sys")
	AWS       = New("aws")
	Consul    = New("consul")
	CubbyHole = New("cubbyhole")
	KeyValue  = New("kv")
	Identity  = New("identity")
	Nomad     = New("nomad")
	PKI       = New("pki")
	RabbitMQ  = New("rabbitmq")
	SSH       = New("ssh")
	TOTP      = New("totp")
	Transit   = New("transit")
)

// Well-known auth method kinds. AWS doubles as the aws auth method.
var (
	AppRole    = New("approle")
	Azure      = New("azure")
	Cert       = New("cert")
	GCP        = New("gcp")
	GitHub     = New("github")
	JWT        = New("jwt")
	Kubernetes = New("kubernetes")
	LDAP       = New("ldap")
	OIDC       = New("oidc")
	Okta       = New("okta")
	Radius     = New("radius")
	Token      = New("token")
	Userpass   = New("userpass")
)

// New returns the Type for token. It never fails; the token is stored
// verbatim.
func New(token string) Type {
	return Type{name: token}
}

// String returns the raw token, suitable as a path segment or wire value.
func (t Type) String() string {
	return t.name
}

// Key returns the canonical form of the token. Two Types are Equal exactly
// when their keys are equal.
func (t Type) Key() string {
	return strings.ToUpper(t.name)
}

// Equal reports whether t and other name the same kind, ignoring case.
func (t Type) Equal(other Type) bool {
	return t.Key() == other.Key()
}

// Hash returns a case-insensitive hash of the token, consistent with Equal.
func (t Type) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(t.Key()))
	return h.Sum64()
}

// IsZero reports whether t has an empty token.
func (t Type) IsZero() bool {
	return t.name == ""
}

// IsKnown reports whether t is registered in either built-in registry.
func (t Type) IsKnown() bool {
	if _, ok := SecretEngines().Lookup(t); ok {
		return true
	}
	_, ok := AuthMethods().Lookup(t)
	return ok
}

// MarshalText encodes t as its raw token.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.name), nil
}

// UnmarshalText decodes any token into t, including unknown ones.
func (t *Type) UnmarshalText(text []byte) error {
	t.name = string(text)
	return nil
}

// Equal reports whether a and b name the same kind. Two nil identities are
// equal; a nil and a non-nil identity are not.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

var typeType = reflect.TypeOf(Type{})

// DecodeHook returns a mapstructure hook that decodes string values into
// Type fields.
func DecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != typeType || from.Kind() != reflect.String {
			return data, nil
		}
		return New(reflect.ValueOf(data).String()), nil
	}
}

package backend

import (
	"sort"
	"sync"
)

// Category separates secret engines from auth methods. The same token (for
// example "aws") may name a kind in both.
type Category string

const (
	SecretEngine Category = "secret"
	AuthMethod   Category = "auth"
)

// Info describes a registered backend kind.
type Info struct {
	Type        Type
	Category    Category
	DefaultPath string
	Description string
}

// Registry maps backend kinds of one category to their descriptions.
// A Registry is safe for concurrent use.
type Registry struct {
	category Category

	mu    sync.RWMutex
	kinds map[string]Info
}

// NewRegistry creates an empty registry for category.
func NewRegistry(category Category) *Registry {
	return &Registry{
		category: category,
		kinds:    make(map[string]Info),
	}
}

// Category returns the registry's category.
func (r *Registry) Category() Category {
	return r.category
}

// Register adds or replaces the entry for info.Type. An empty default path
// defaults to the token itself.
func (r *Registry) Register(info Info) {
	info.Category = r.category
	if info.DefaultPath == "" {
		info.DefaultPath = info.Type.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[info.Type.Key()] = info
}

// Lookup returns the entry registered for t, ignoring case.
func (r *Registry) Lookup(t Type) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.kinds[t.Key()]
	return info, ok
}

// IsSupported reports whether t is registered.
func (r *Registry) IsSupported(t Type) bool {
	_, ok := r.Lookup(t)
	return ok
}

// Describe returns the description registered for t.
func (r *Registry) Describe(t Type) string {
	if info, ok := r.Lookup(t); ok {
		return info.Description
	}
	return "unregistered backend kind"
}

// Types returns the registered kinds sorted by token.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	types := make([]Type, 0, len(r.kinds))
	for _, info := range r.kinds {
		types = append(types, info.Type)
	}
	r.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool {
		return types[i].Key() < types[j].Key()
	})
	return types
}

var (
	builtinOnce   sync.Once
	secretEngines *Registry
	authMethods   *Registry
)

// SecretEngines returns the built-in secret engine registry.
func SecretEngines() *Registry {
	builtinOnce.Do(initBuiltins)
	return secretEngines
}

// AuthMethods returns the built-in auth method registry.
func AuthMethods() *Registry {
	builtinOnce.Do(initBuiltins)
	return authMethods
}

func initBuiltins() {
	secretEngines = NewRegistry(SecretEngine)
	for _, info := range []Info{
		{Type: System, Description: "System backend (mounts, policies, wrapping)"},
		{Type: AWS, Description: "Dynamic AWS IAM credentials"},
		{Type: Consul, Description: "Dynamic Consul ACL tokens"},
		{Type: CubbyHole, Description: "Per-token private storage"},
		{Type: KeyValue, DefaultPath: "secret", Description: "Key/value storage (v1 or versioned v2)"},
		{Type: Identity, Description: "Entities, groups and aliases"},
		{Type: Nomad, Description: "Dynamic Nomad ACL tokens"},
		{Type: PKI, Description: "X.509 certificate authority"},
		{Type: RabbitMQ, Description: "Dynamic RabbitMQ users"},
		{Type: SSH, Description: "Signed SSH certificates and one-time passwords"},
		{Type: TOTP, Description: "Time-based one-time passwords"},
		{Type: Transit, Description: "Encryption as a service"},
	} {
		secretEngines.Register(info)
	}

	authMethods = NewRegistry(AuthMethod)
	for _, info := range []Info{
		{Type: AppRole, Description: "Role ID and secret ID login for machines"},
		{Type: AWS, Description: "AWS IAM or EC2 identity login"},
		{Type: Azure, Description: "Azure managed identity login"},
		{Type: Cert, Description: "TLS client certificate login"},
		{Type: GCP, Description: "Google Cloud IAM or GCE login"},
		{Type: GitHub, Description: "GitHub personal access token login"},
		{Type: JWT, Description: "Signed JWT login"},
		{Type: Kubernetes, Description: "Kubernetes service account login"},
		{Type: LDAP, Description: "LDAP username and password login"},
		{Type: OIDC, Description: "OpenID Connect browser login"},
		{Type: Okta, Description: "Okta username and password login"},
		{Type: Radius, Description: "RADIUS username and password login"},
		{Type: Token, Description: "Token store (always mounted)"},
		{Type: Userpass, Description: "Username and password login"},
	} {
		authMethods.Register(info)
	}
}

package backend

import (
	"strings"
)

// Descriptor is a mounted backend instance: a kind plus the metadata Vault
// reports for the mount. Descriptors are immutable.
type Descriptor struct {
	category    Category
	kind        Type
	path        string
	description string
	accessor    string
	local       bool
	sealWrap    bool
	config      map[string]interface{}
	options     map[string]string
}

// DescriptorOption sets optional mount metadata on a new Descriptor.
type DescriptorOption func(*Descriptor)

// WithAccessor records the mount accessor.
func WithAccessor(accessor string) DescriptorOption {
	return func(d *Descriptor) { d.accessor = accessor }
}

// WithLocal marks the mount as local to the cluster (not replicated).
func WithLocal(local bool) DescriptorOption {
	return func(d *Descriptor) { d.local = local }
}

// WithSealWrap marks the mount as seal-wrapped.
func WithSealWrap(sealWrap bool) DescriptorOption {
	return func(d *Descriptor) { d.sealWrap = sealWrap }
}

// WithOptions records the mount options (for kv, "version").
func WithOptions(options map[string]string) DescriptorOption {
	return func(d *Descriptor) { d.options = copyStrings(options) }
}

// WithCategory records whether the mount is a secret engine or auth method.
func WithCategory(category Category) DescriptorOption {
	return func(d *Descriptor) { d.category = category }
}

// NewDescriptor creates a descriptor for a backend of kind mounted at path.
// The config map is copied.
func NewDescriptor(kind Type, path, description string, config map[string]interface{}, opts ...DescriptorOption) Descriptor {
	d := Descriptor{
		category:    SecretEngine,
		kind:        kind,
		path:        NormalizeMountPath(path),
		description: description,
		config:      copyConfig(config),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NormalizeMountPath strips leading slashes and guarantees exactly one
// trailing slash. The empty path stays empty.
func NormalizeMountPath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	return path + "/"
}

func (d Descriptor) Category() Category  { return d.category }
func (d Descriptor) Type() Type          { return d.kind }
func (d Descriptor) Description() string { return d.description }
func (d Descriptor) Accessor() string    { return d.accessor }
func (d Descriptor) Local() bool         { return d.local }
func (d Descriptor) SealWrap() bool      { return d.sealWrap }

// Path returns the normalized mount path, with trailing slash.
func (d Descriptor) Path() string {
	return d.path
}

// MountPoint returns the mount path without the trailing slash, the form the
// kv client takes as a mount point.
func (d Descriptor) MountPoint() string {
	return strings.TrimSuffix(d.path, "/")
}

// Config returns a copy of the mount configuration.
func (d Descriptor) Config() map[string]interface{} {
	return copyConfig(d.config)
}

// Options returns a copy of the mount options.
func (d Descriptor) Options() map[string]string {
	return copyStrings(d.options)
}

// Option returns a single mount option.
func (d Descriptor) Option(key string) (string, bool) {
	v, ok := d.options[key]
	return v, ok
}

// IsVersionedKV reports whether the mount is a kv engine running version 2.
func (d Descriptor) IsVersionedKV() bool {
	if !d.kind.Equal(KeyValue) {
		return false
	}
	version, _ := d.Option("version")
	return version == "2"
}

// Registered looks the descriptor's kind up in the built-in registry for its
// category.
func (d Descriptor) Registered() (Info, bool) {
	if d.category == AuthMethod {
		return AuthMethods().Lookup(d.kind)
	}
	return SecretEngines().Lookup(d.kind)
}

func copyConfig(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

package kv

import (
	"sort"
	"time"
)

// Secret is a decoded response envelope.
type Secret[T any] struct {
	RequestID     string
	LeaseID       string
	LeaseDuration int
	Renewable     bool
	Warnings      []string
	Data          T
}

// SecretData is one version of a secret with the metadata of that version.
type SecretData struct {
	Data     map[string]interface{} `mapstructure:"data"`
	Metadata CurrentSecretMetadata  `mapstructure:"metadata"`
}

// live reports whether sd holds a readable version at t. Vault answers 404
// otherwise, but older servers and some proxies return 200 with an empty
// payload.
func (sd SecretData) live(t time.Time) bool {
	if sd.Data == nil || sd.Metadata.Destroyed {
		return false
	}
	return sd.Metadata.DeletionTime.IsZero() || sd.Metadata.DeletionTime.After(t)
}

// CurrentSecretMetadata describes the version returned by ReadSecret.
type CurrentSecretMetadata struct {
	CreatedTime    time.Time         `mapstructure:"created_time"`
	DeletionTime   time.Time         `mapstructure:"deletion_time"`
	Destroyed      bool              `mapstructure:"destroyed"`
	Version        int               `mapstructure:"version"`
	CustomMetadata map[string]string `mapstructure:"custom_metadata"`
}

// ListInfo holds the immediate children of a folder, in server order.
// Folder children end with "/".
type ListInfo struct {
	Keys []string `mapstructure:"keys"`
}

// Folders returns the children that are folders.
func (l ListInfo) Folders() []string {
	var out []string
	for _, k := range l.Keys {
		if IsFolder(k) {
			out = append(out, k)
		}
	}
	return out
}

// Leaves returns the children that hold values.
func (l ListInfo) Leaves() []string {
	var out []string
	for _, k := range l.Keys {
		if !IsFolder(k) {
			out = append(out, k)
		}
	}
	return out
}

// IsFolder reports whether a listed key denotes a folder.
func IsFolder(key string) bool {
	return len(key) > 0 && key[len(key)-1] == '/'
}

// FullSecretMetadata is the version history of one logical path.
type FullSecretMetadata struct {
	CreatedTime        time.Time               `mapstructure:"created_time"`
	UpdatedTime        time.Time               `mapstructure:"updated_time"`
	CurrentVersion     int                     `mapstructure:"current_version"`
	OldestVersion      int                     `mapstructure:"oldest_version"`
	MaxVersions        int                     `mapstructure:"max_versions"`
	CASRequired        bool                    `mapstructure:"cas_required"`
	DeleteVersionAfter string                  `mapstructure:"delete_version_after"`
	CustomMetadata     map[string]string       `mapstructure:"custom_metadata"`
	Versions           map[int]VersionMetadata `mapstructure:"versions"`
}

// Version returns the metadata of version n.
func (m FullSecretMetadata) Version(n int) (VersionMetadata, bool) {
	v, ok := m.Versions[n]
	return v, ok
}

// VersionNumbers returns the known version numbers in ascending order.
func (m FullSecretMetadata) VersionNumbers() []int {
	nums := make([]int, 0, len(m.Versions))
	for n := range m.Versions {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// VersionMetadata describes one version in a path's history.
type VersionMetadata struct {
	CreatedTime  time.Time `mapstructure:"created_time"`
	DeletionTime time.Time `mapstructure:"deletion_time"`
	Destroyed    bool      `mapstructure:"destroyed"`
}

// VersionState is the lifecycle state of a version.
type VersionState int

const (
	Active VersionState = iota
	Deleted
	Destroyed
)

func (s VersionState) String() string {
	switch s {
	case Active:
		return "active"
	case Deleted:
		return "deleted"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// State returns the version's state now.
func (v VersionMetadata) State() VersionState {
	return v.StateAt(time.Now())
}

// StateAt returns the version's state at t. A deletion time in the future
// (scheduled by delete_version_after) leaves the version active until then.
func (v VersionMetadata) StateAt(t time.Time) VersionState {
	switch {
	case v.Destroyed:
		return Destroyed
	case !v.DeletionTime.IsZero() && !v.DeletionTime.After(t):
		return Deleted
	default:
		return Active
	}
}

// WrapInfo is the single-use token that replaces a wrapped response.
type WrapInfo struct {
	Token        string
	Accessor     string
	TTL          time.Duration
	CreationTime time.Time
	CreationPath string
}

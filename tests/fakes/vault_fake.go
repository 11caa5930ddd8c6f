package fakes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/systmms/dsvault/pkg/transport"
)

// FakeVault is an in-memory Vault implementing transport.Transport.
//
// It serves KV v2 data, metadata and list endpoints for every mount added
// with WithKVMount, the sys/mounts and sys/auth listings, and response
// wrapping through sys/wrapping/unwrap. Responses pass through a JSON round
// trip so decoded values have the same shapes as those parsed by the real
// client (json.Number, string map keys, RFC 3339 timestamps).
//
// Example usage:
//
//	vault := fakes.NewFakeVault().WithKVMount("secret")
//	vault.Put("secret", "app/config", map[string]interface{}{"user": "admin"})
//	vault.Put("secret", "app/config", map[string]interface{}{"user": "root"})
//	vault.Destroy("secret", "app/config", 1)
//
//	client := kv.NewClient(vault)
type FakeVault struct {
	mu sync.Mutex

	now func() time.Time

	kvMounts     map[string]*fakeKVMount
	secretMounts map[string]FakeMount
	authMounts   map[string]FakeMount

	denied   []string
	failures map[string]error
	wrapped  map[string]*transport.Envelope
	nextWrap int

	calls []transport.Request
}

// FakeMount describes an entry in sys/mounts or sys/auth.
type FakeMount struct {
	Type        string
	Description string
	Accessor    string
	Local       bool
	SealWrap    bool
	Options     map[string]string
	Config      map[string]interface{}
}

type fakeKVMount struct {
	secrets map[string]*fakeKVSecret
}

type fakeKVSecret struct {
	created        time.Time
	updated        time.Time
	versions       []*fakeKVVersion
	customMetadata map[string]string
}

type fakeKVVersion struct {
	data      map[string]interface{}
	created   time.Time
	deleted   time.Time
	destroyed bool
}

// NewFakeVault creates an empty fake with the wall clock.
func NewFakeVault() *FakeVault {
	return &FakeVault{
		now:          time.Now,
		kvMounts:     make(map[string]*fakeKVMount),
		secretMounts: make(map[string]FakeMount),
		authMounts:   make(map[string]FakeMount),
		failures:     make(map[string]error),
		wrapped:      make(map[string]*transport.Envelope),
	}
}

// WithClock replaces the clock used for version timestamps.
func (f *FakeVault) WithClock(now func() time.Time) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = now
	return f
}

// WithKVMount adds a KV v2 mount. It also appears in sys/mounts.
func (f *FakeVault) WithKVMount(mount string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	mount = strings.Trim(mount, "/")
	f.kvMounts[mount] = &fakeKVMount{secrets: make(map[string]*fakeKVSecret)}
	f.secretMounts[mount+"/"] = FakeMount{
		Type:        "kv",
		Description: "key/value secret storage",
		Accessor:    "kv_" + mount,
		Options:     map[string]string{"version": "2"},
	}
	return f
}

// WithSecretMount adds a non-KV entry to sys/mounts.
func (f *FakeVault) WithSecretMount(path string, m FakeMount) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.secretMounts[strings.Trim(path, "/")+"/"] = m
	return f
}

// WithAuthMount adds an entry to sys/auth.
func (f *FakeVault) WithAuthMount(path string, m FakeMount) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authMounts[strings.Trim(path, "/")+"/"] = m
	return f
}

// Deny makes every request whose path starts with prefix fail with 403.
func (f *FakeVault) Deny(prefix string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.denied = append(f.denied, strings.TrimPrefix(prefix, "/"))
	return f
}

// WithError makes every request whose path starts with prefix return err.
func (f *FakeVault) WithError(prefix string, err error) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[strings.TrimPrefix(prefix, "/")] = err
	return f
}

// Put writes a new version of path and returns its number.
func (f *FakeVault) Put(mount, path string, data map[string]interface{}) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	m := f.mustMount(mount)
	path = strings.Trim(path, "/")
	now := f.now().UTC()

	s, ok := m.secrets[path]
	if !ok {
		s = &fakeKVSecret{created: now}
		m.secrets[path] = s
	}
	s.updated = now
	s.versions = append(s.versions, &fakeKVVersion{data: copyMap(data), created: now})
	return len(s.versions)
}

// SetCustomMetadata replaces the custom metadata of path.
func (f *FakeVault) SetCustomMetadata(mount, path string, md map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s := f.mustMount(mount).secrets[strings.Trim(path, "/")]; s != nil {
		s.customMetadata = md
	}
}

// Delete soft-deletes versions of path. No versions means the latest.
func (f *FakeVault) Delete(mount, path string, versions ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now().UTC()
	for _, v := range f.selectVersions(mount, path, versions) {
		if v.deleted.IsZero() {
			v.deleted = now
		}
	}
}

// Undelete restores soft-deleted versions of path.
func (f *FakeVault) Undelete(mount, path string, versions ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, v := range f.selectVersions(mount, path, versions) {
		v.deleted = time.Time{}
	}
}

// Destroy permanently removes the data of versions of path.
func (f *FakeVault) Destroy(mount, path string, versions ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, v := range f.selectVersions(mount, path, versions) {
		v.destroyed = true
		v.data = nil
	}
}

// Calls returns a copy of every request received, in order.
func (f *FakeVault) Calls() []transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]transport.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns the number of requests received.
func (f *FakeVault) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

// LastCall returns the most recent request.
func (f *FakeVault) LastCall() (transport.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.calls) == 0 {
		return transport.Request{}, false
	}
	return f.calls[len(f.calls)-1], true
}

// Send implements transport.Transport.
func (f *FakeVault) Send(ctx context.Context, req *transport.Request) (*transport.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.ConnectionError{Method: req.Method, Path: req.Path, Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(req.Path, "/")
	f.calls = append(f.calls, *req)

	for prefix, err := range f.failures {
		if strings.HasPrefix(path, prefix) {
			return nil, err
		}
	}
	for _, prefix := range f.denied {
		if strings.HasPrefix(path, prefix) {
			return nil, respErr(req.Method, path, http.StatusForbidden, "permission denied")
		}
	}

	env, err := f.route(req.Method, path, req)
	if err != nil {
		return nil, err
	}
	if req.WrapTTL != "" && env != nil {
		return f.wrap(path, req.WrapTTL, env)
	}
	return env, nil
}

func (f *FakeVault) route(method, path string, req *transport.Request) (*transport.Envelope, error) {
	switch {
	case path == "sys/mounts" && method == http.MethodGet:
		return f.mountTable(f.secretMounts), nil
	case path == "sys/auth" && method == http.MethodGet:
		return f.mountTable(f.authMounts), nil
	case path == "sys/wrapping/unwrap" && method == http.MethodPost:
		return f.unwrap(req)
	}

	for mount, m := range f.kvMounts {
		rest, ok := strings.CutPrefix(path, mount+"/")
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(rest, "data/") && method == http.MethodGet:
			return f.readData(m, path, strings.TrimPrefix(rest, "data/"), req)
		case strings.HasPrefix(rest, "metadata/") && method == transport.MethodList:
			return f.list(m, path, strings.TrimPrefix(rest, "metadata/"))
		case strings.HasPrefix(rest, "metadata/") && method == http.MethodGet:
			return f.metadata(m, path, strings.TrimPrefix(rest, "metadata/"))
		}
		return nil, respErr(method, path, http.StatusMethodNotAllowed, "unsupported operation")
	}
	return nil, respErr(method, path, http.StatusNotFound, "no handler for route "+path)
}

func (f *FakeVault) readData(m *fakeKVMount, full, p string, req *transport.Request) (*transport.Envelope, error) {
	s, ok := m.secrets[strings.Trim(p, "/")]
	if !ok {
		return nil, respErr(http.MethodGet, full, http.StatusNotFound)
	}

	n := len(s.versions)
	if raw := req.Query.Get("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, respErr(http.MethodGet, full, http.StatusBadRequest, "invalid version")
		}
		n = v
	}
	if n < 1 || n > len(s.versions) {
		return nil, respErr(http.MethodGet, full, http.StatusNotFound)
	}

	v := s.versions[n-1]
	if v.destroyed || (!v.deleted.IsZero() && !v.deleted.After(f.now())) {
		return nil, respErr(http.MethodGet, full, http.StatusNotFound)
	}

	return f.envelope(map[string]interface{}{
		"data": v.data,
		"metadata": map[string]interface{}{
			"created_time":    formatTime(v.created),
			"deletion_time":   formatTime(v.deleted),
			"destroyed":       v.destroyed,
			"version":         n,
			"custom_metadata": s.customMetadata,
		},
	})
}

func (f *FakeVault) list(m *fakeKVMount, full, p string) (*transport.Envelope, error) {
	prefix := strings.Trim(p, "/")
	if prefix != "" {
		prefix += "/"
	}

	seen := make(map[string]bool)
	for key := range m.secrets {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || rest == "" {
			continue
		}
		child := rest
		if i := strings.Index(rest, "/"); i >= 0 {
			child = rest[:i+1]
		}
		seen[child] = true
	}
	if len(seen) == 0 {
		return nil, respErr(transport.MethodList, full, http.StatusNotFound)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return f.envelope(map[string]interface{}{"keys": keys})
}

func (f *FakeVault) metadata(m *fakeKVMount, full, p string) (*transport.Envelope, error) {
	s, ok := m.secrets[strings.Trim(p, "/")]
	if !ok {
		return nil, respErr(http.MethodGet, full, http.StatusNotFound)
	}

	versions := make(map[string]interface{}, len(s.versions))
	for i, v := range s.versions {
		versions[strconv.Itoa(i+1)] = map[string]interface{}{
			"created_time":  formatTime(v.created),
			"deletion_time": formatTime(v.deleted),
			"destroyed":     v.destroyed,
		}
	}

	return f.envelope(map[string]interface{}{
		"cas_required":         false,
		"created_time":         formatTime(s.created),
		"current_version":      len(s.versions),
		"custom_metadata":      s.customMetadata,
		"delete_version_after": "0s",
		"max_versions":         0,
		"oldest_version":       0,
		"updated_time":         formatTime(s.updated),
		"versions":             versions,
	})
}

func (f *FakeVault) mountTable(mounts map[string]FakeMount) *transport.Envelope {
	data := make(map[string]interface{}, len(mounts))
	for path, m := range mounts {
		cfg := m.Config
		if cfg == nil {
			cfg = map[string]interface{}{"default_lease_ttl": 0, "max_lease_ttl": 0}
		}
		data[path] = map[string]interface{}{
			"type":        m.Type,
			"description": m.Description,
			"accessor":    m.Accessor,
			"local":       m.Local,
			"seal_wrap":   m.SealWrap,
			"options":     m.Options,
			"config":      cfg,
		}
	}
	env, _ := f.envelope(data)
	return env
}

func (f *FakeVault) wrap(path, ttl string, env *transport.Envelope) (*transport.Envelope, error) {
	d, err := time.ParseDuration(ttl)
	if err != nil {
		secs, aerr := strconv.Atoi(ttl)
		if aerr != nil {
			return nil, respErr(http.MethodGet, path, http.StatusBadRequest, "invalid wrap TTL")
		}
		d = time.Duration(secs) * time.Second
	}

	f.nextWrap++
	token := fmt.Sprintf("hvs.wrapped.%d", f.nextWrap)
	f.wrapped[token] = env

	return &transport.Envelope{
		RequestID: fmt.Sprintf("wrap-%d", f.nextWrap),
		WrapInfo: &transport.WrapInfo{
			Token:        token,
			Accessor:     fmt.Sprintf("accessor.%d", f.nextWrap),
			TTL:          int(d / time.Second),
			CreationTime: f.now().UTC(),
			CreationPath: path,
		},
	}, nil
}

func (f *FakeVault) unwrap(req *transport.Request) (*transport.Envelope, error) {
	token, _ := req.Body["token"].(string)
	env, ok := f.wrapped[token]
	if !ok {
		return nil, respErr(http.MethodPost, "sys/wrapping/unwrap", http.StatusBadRequest, "wrapping token is not valid or does not exist")
	}
	delete(f.wrapped, token)
	return env, nil
}

// envelope builds a response after a JSON round trip of data.
func (f *FakeVault) envelope(data map[string]interface{}) (*transport.Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var wire map[string]interface{}
	if err := dec.Decode(&wire); err != nil {
		return nil, err
	}
	return &transport.Envelope{
		RequestID: fmt.Sprintf("req-%d", len(f.calls)),
		Data:      wire,
	}, nil
}

func (f *FakeVault) mustMount(mount string) *fakeKVMount {
	m, ok := f.kvMounts[strings.Trim(mount, "/")]
	if !ok {
		panic("fakes: unknown kv mount " + mount)
	}
	return m
}

func (f *FakeVault) selectVersions(mount, path string, versions []int) []*fakeKVVersion {
	s := f.mustMount(mount).secrets[strings.Trim(path, "/")]
	if s == nil {
		return nil
	}
	if len(versions) == 0 {
		versions = []int{len(s.versions)}
	}
	var out []*fakeKVVersion
	for _, n := range versions {
		if n >= 1 && n <= len(s.versions) {
			out = append(out, s.versions[n-1])
		}
	}
	return out
}

func respErr(method, path string, status int, msgs ...string) *transport.ResponseError {
	if msgs == nil {
		msgs = []string{}
	}
	return &transport.ResponseError{Method: method, Path: path, StatusCode: status, Errors: msgs}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ transport.Transport = (*FakeVault)(nil)

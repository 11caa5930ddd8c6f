package secure

import (
	"fmt"
	"sync"
)

// Credentials is a named set of protected login secrets.
type Credentials struct {
	mu     sync.Mutex
	fields map[string]*SecureBuffer
}

// NewCredentials creates an empty set.
func NewCredentials() *Credentials {
	return &Credentials{fields: make(map[string]*SecureBuffer)}
}

// SetString protects value under name, replacing any previous value. Empty
// values are ignored.
func (c *Credentials) SetString(name, value string) error {
	if value == "" {
		return nil
	}
	buf, err := NewSecureString(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.fields[name]; ok {
		old.Destroy()
	}
	c.fields[name] = buf
	return nil
}

// Has reports whether name holds a value.
func (c *Credentials) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.fields[name]
	return ok
}

// Use decrypts name for the duration of fn.
func (c *Credentials) Use(name string, fn func(string) error) error {
	c.mu.Lock()
	buf, ok := c.fields[name]
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("credential %q is not set", name)
	}
	return buf.Use(fn)
}

// Reveal returns a plaintext copy of name.
func (c *Credentials) Reveal(name string) (string, error) {
	var out string
	err := c.Use(name, func(v string) error {
		out = v
		return nil
	})
	return out, err
}

// Destroy wipes every credential.
func (c *Credentials) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, buf := range c.fields {
		buf.Destroy()
		delete(c.fields, name)
	}
}

package backend

import (
	"encoding/json"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestType_Equal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{name: "same token", a: New("kv"), b: New("kv"), want: true},
		{name: "case differs", a: New("KV"), b: New("kv"), want: true},
		{name: "mixed case", a: New("RabbitMQ"), b: RabbitMQ, want: true},
		{name: "different kinds", a: New("kv"), b: New("pki"), want: false},
		{name: "prefix is not equal", a: New("kv"), b: New("kv2"), want: false},
		{name: "custom kinds", a: New("my-plugin"), b: New("MY-PLUGIN"), want: true},
		{name: "both empty", a: New(""), b: Type{}, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			// symmetric
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestType_EqualityIsTransitive(t *testing.T) {
	t.Parallel()

	a, b, c := New("Transit"), New("TRANSIT"), New("transit")
	require.True(t, a.Equal(b))
	require.True(t, b.Equal(c))
	assert.True(t, a.Equal(c))
	assert.True(t, a.Equal(a))
}

func TestType_Hash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, New("kv").Hash(), New("KV").Hash())
	assert.Equal(t, New("Cubbyhole").Hash(), CubbyHole.Hash())
	assert.NotEqual(t, New("kv").Hash(), New("pki").Hash())
}

func TestType_KeyConsistentWithEqual(t *testing.T) {
	t.Parallel()

	seen := map[string]Type{}
	for _, typ := range []Type{New("kv"), New("KV"), New("Kv"), PKI, New("pki")} {
		seen[typ.Key()] = typ
	}
	assert.Len(t, seen, 2)
}

func TestEqual_Nil(t *testing.T) {
	t.Parallel()

	kv := New("kv")
	other := New("KV")

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(&kv, nil))
	assert.False(t, Equal(nil, &kv))
	assert.True(t, Equal(&kv, &other))
	assert.NotPanics(t, func() { Equal(nil, &kv) })
}

func TestType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "KeyValue", New("KeyValue").String())
	assert.Equal(t, "kv", KeyValue.String())
}

func TestType_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	type mount struct {
		Type Type `json:"type"`
	}

	var m mount
	require.NoError(t, json.Unmarshal([]byte(`{"type":"my-custom-engine"}`), &m))
	assert.Equal(t, "my-custom-engine", m.Type.String())
	assert.False(t, m.Type.IsKnown())

	out, err := json.Marshal(mount{Type: New("PKI")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"PKI"}`, string(out))
}

func TestType_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	type mount struct {
		Type Type `yaml:"type"`
	}

	var m mount
	require.NoError(t, yaml.Unmarshal([]byte("type: Transit\n"), &m))
	assert.True(t, m.Type.Equal(Transit))

	out, err := yaml.Marshal(mount{Type: SSH})
	require.NoError(t, err)
	assert.Equal(t, "type: ssh\n", string(out))
}

func TestDecodeHook(t *testing.T) {
	t.Parallel()

	var out struct {
		Type Type `mapstructure:"type"`
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DecodeHook(),
		Result:     &out,
	})
	require.NoError(t, err)
	require.NoError(t, dec.Decode(map[string]interface{}{"type": "Nomad"}))
	assert.True(t, out.Type.Equal(Nomad))
	assert.Equal(t, "Nomad", out.Type.String())
}

func TestType_IsKnown(t *testing.T) {
	t.Parallel()

	assert.True(t, New("KV").IsKnown())
	assert.True(t, New("userpass").IsKnown())
	assert.False(t, New("unheard-of").IsKnown())
	assert.True(t, Type{}.IsZero())
}

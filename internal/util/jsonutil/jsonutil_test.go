package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoEscapeKeepsAngleBrackets(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"code": "if (a < b && c > d) {}"})
	require.NoError(t, err)
	assert.Equal(t, `{"code":"if (a < b && c > d) {}"}`, string(b))
}

func TestDecodeObject(t *testing.T) {
	m, ok := DecodeObject([]byte(` {"a":1} `))
	require.True(t, ok)
	assert.Equal(t, float64(1), m["a"])

	m, ok = DecodeObject([]byte(`"{\"a\":\"b\"}"`))
	require.True(t, ok, "double-encoded object is unwrapped")
	assert.Equal(t, "b", m["a"])

	for _, in := range []string{``, `[1,2]`, `42`, `"plain"`, `{"a":1} trailing`} {
		_, ok := DecodeObject([]byte(in))
		assert.False(t, ok, in)
	}
}

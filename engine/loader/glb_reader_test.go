package loader

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsGLBName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"model.glb", true},
		{"MODEL.GLB", true},
		{"http://host/a/model.glb?v=3", true},
		{"model.gltf", false},
		{"model.glb.gltf", false},
		{"glb", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isGLBName(tt.name))
		})
	}
}

func TestParseGLB(t *testing.T) {
	valid := buildGLB([]byte(`{"asset":{"version":"2.0"}}`), []byte{1, 2, 3, 4})

	t.Run("valid container", func(t *testing.T) {
		c, err := parseGLB(valid)
		require.NoError(t, err)
		assert.True(t, c.glb)
		assert.Equal(t, []byte{1, 2, 3, 4}, c.binary)
		assert.True(t, json.Valid(c.json))
	})

	t.Run("json chunk only", func(t *testing.T) {
		c, err := parseGLB(buildGLB([]byte(`{"asset":{"version":"2.0"}}`), nil))
		require.NoError(t, err)
		assert.Nil(t, c.binary)
	})

	corrupt := func(offset int, value uint32) []byte {
		data := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint32(data[offset:], value)
		return data
	}

	tests := []struct {
		name  string
		data  []byte
		field string
	}{
		{"short header", valid[:8], "header"},
		{"zero magic", corrupt(0, 0), "magic"},
		{"version 1", corrupt(4, 1), "version"},
		{"zero length", corrupt(8, 0), "length"},
		{"length past end", corrupt(8, uint32(len(valid)+4)), "length"},
		{"chunk past end", corrupt(12, 4096), "chunkLength"},
		{"bin chunk first", corrupt(16, gltfGLBChunkBIN), "chunkType"},
		{"no chunks", corrupt(8, 12), "chunkCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseGLB(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedContainer))
			assert.Equal(t, KindMalformedContainer, KindOf(err))

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.field, le.Field)
		})
	}

	t.Run("magic is checked before json", func(t *testing.T) {
		data := buildGLB([]byte(`not json at all`), nil)
		binary.LittleEndian.PutUint32(data, 0)
		_, err := readContainer("broken.glb", data)
		var le *LoadError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "magic", le.Field)
		assert.Equal(t, "0x46546C67", le.Expected)
		assert.Equal(t, "0x00000000", le.Found)
	})
}

func TestReadContainerPlainJSON(t *testing.T) {
	js := []byte(`{"asset":{"version":"2.0"}}`)
	c, err := readContainer("scene.gltf", js)
	require.NoError(t, err)
	assert.False(t, c.glb)
	assert.Equal(t, js, c.json)
	assert.Nil(t, c.binary)
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, 2.0, parseVersion("2.0"))
	assert.Equal(t, 2.1, parseVersion("2.1-beta"))
	assert.Equal(t, 1.0, parseVersion(" 1"))
	assert.True(t, math.IsNaN(parseVersion("two")))
}

func TestParseDocument(t *testing.T) {
	t.Run("accepts 2.0 and missing versions", func(t *testing.T) {
		for _, js := range []string{
			`{"asset":{"version":"2.0"}}`,
			`{"asset":{"version":"3.5"}}`,
			`{"asset":{}}`,
			`{"asset":{"version":"unknown"}}`,
		} {
			_, err := parseDocument([]byte(js))
			assert.NoError(t, err, js)
		}
	})

	t.Run("rejects versions below 2", func(t *testing.T) {
		_, err := parseDocument([]byte(`{"asset":{"version":"1.0"}}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedGltfVersion))
		assert.Contains(t, err.Error(), "1.0")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := parseDocument([]byte(`{"asset":`))
		assert.Equal(t, KindMalformedContainer, KindOf(err))
	})

	t.Run("rejects negative layout fields", func(t *testing.T) {
		for _, js := range []string{
			`{"accessors":[{"bufferView":0,"count":-1,"componentType":5126,"type":"VEC3"}]}`,
			`{"accessors":[{"count":-2,"componentType":5126,"type":"SCALAR"}]}`,
			`{"accessors":[{"count":1,"byteOffset":-4,"componentType":5126,"type":"SCALAR"}]}`,
			`{"accessors":[{"count":2,"componentType":5126,"type":"SCALAR","sparse":{"count":-2,"indices":{"bufferView":0,"componentType":5123},"values":{"bufferView":1}}}]}`,
			`{"accessors":[{"count":2,"componentType":5126,"type":"SCALAR","sparse":{"count":3,"indices":{"bufferView":0,"componentType":5123},"values":{"bufferView":1}}}]}`,
			`{"accessors":[{"count":2,"componentType":5126,"type":"SCALAR","sparse":{"count":1,"indices":{"bufferView":0,"byteOffset":-2,"componentType":5123},"values":{"bufferView":1}}}]}`,
			`{"bufferViews":[{"buffer":0,"byteLength":12,"byteStride":-4}]}`,
			`{"bufferViews":[{"buffer":0,"byteOffset":-1,"byteLength":12}]}`,
			`{"bufferViews":[{"buffer":0,"byteLength":-12}]}`,
		} {
			_, err := parseDocument([]byte(js))
			require.Error(t, err, js)
			assert.True(t, errors.Is(err, ErrInvalidAsset), js)
		}
	})

	t.Run("accepts a zero count", func(t *testing.T) {
		_, err := parseDocument([]byte(`{"accessors":[{"count":0,"componentType":5126,"type":"SCALAR","sparse":{"count":0,"indices":{"bufferView":0,"componentType":5123},"values":{"bufferView":1}}}]}`))
		assert.NoError(t, err)
	})

	t.Run("extensions stay raw", func(t *testing.T) {
		doc, err := parseDocument([]byte(`{"asset":{"version":"2.0"},"extensions":{"X_custom":{"a":1}}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(doc.Extensions["X_custom"]))
	})
}

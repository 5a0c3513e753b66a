package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Stable(t *testing.T) {
	a, err := Fingerprint(100, "score", Asc, 2000, "v-abc")
	require.NoError(t, err)
	b, err := Fingerprint(100, "score", Asc, 2000, "v-abc")
	require.NoError(t, err)

	assert.Equal(t, a, b, "independently recomputed fingerprints must match")
	assert.Len(t, a, 64, "hex-encoded SHA-256")
}

func TestFingerprint_SensitiveToEachField(t *testing.T) {
	base := MustFingerprint(100, "score", Asc, 2000, "v-abc")

	assert.NotEqual(t, base, MustFingerprint(101, "score", Asc, 2000, "v-abc"), "row count")
	assert.NotEqual(t, base, MustFingerprint(100, "rt", Asc, 2000, "v-abc"), "sort column")
	assert.NotEqual(t, base, MustFingerprint(100, "score", Desc, 2000, "v-abc"), "sort direction")
	assert.NotEqual(t, base, MustFingerprint(100, "score", Asc, 500, "v-abc"), "resolution")
	assert.NotEqual(t, base, MustFingerprint(100, "score", Asc, 2000, "v-def"), "dataset version")
}

func TestSignatureHash_KeyOrderIndependent(t *testing.T) {
	// Maps iterate in random order; canonical encoding must fix it.
	var prev string
	for i := 0; i < 10; i++ {
		h, err := SignatureHash(map[string]any{
			"dataset":        "comet_02COVID",
			"sort_column":    "score",
			"sort_direction": "asc",
			"resolution":     2000,
		})
		require.NoError(t, err)
		if i > 0 {
			assert.Equal(t, prev, h)
		}
		prev = h
	}
}

func TestSignatureHash_RejectsFloats(t *testing.T) {
	_, err := SignatureHash(map[string]any{"threshold": 0.5})
	assert.Error(t, err, "floats must never reach the canonical encoder")
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(data))
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(Null{})
	assert.Error(t, err)
}

func TestMarshalCanonical_SortsKeysUTF16(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(data))
}

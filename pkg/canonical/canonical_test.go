package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string             `json:"name"`
	Year  int                `json:"year"`
	Terms map[string]float64 `json:"terms,omitempty"`
	Note  string             `json:"note,omitempty"`
}

func TestDigestDeterministic(t *testing.T) {
	v := payload{Name: "Maria", Year: 2024, Terms: map[string]float64{"B2": 8, "B1": 7.5}}

	first, err := Digest(v)
	require.NoError(t, err)
	second, err := Digest(v)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestDigestStructAndDecodedMapAgree(t *testing.T) {
	v := payload{Name: "Maria", Year: 2024, Terms: map[string]float64{"B1": 7.5, "B2": 8}}

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	structDigest, err := Digest(v)
	require.NoError(t, err)
	mapDigest, err := Digest(decoded)
	require.NoError(t, err)

	assert.Equal(t, structDigest, mapDigest)
}

func TestDigestChangesWithContent(t *testing.T) {
	base := payload{Name: "Maria", Year: 2024}
	changed := payload{Name: "Maria", Year: 2025}

	baseDigest, err := Digest(base)
	require.NoError(t, err)
	changedDigest, err := Digest(changed)
	require.NoError(t, err)

	assert.NotEqual(t, baseDigest, changedDigest)
}

func TestBytesSortsKeys(t *testing.T) {
	b, err := Bytes(map[string]interface{}{"z": 1, "a": 2, "m": map[string]int{"y": 1, "x": 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"m":{"x":2,"y":1},"z":1}`, string(b))
}

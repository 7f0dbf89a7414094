package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1m30s","b":2000000000}`), &v))
	assert.Equal(t, 90*time.Second, v.A.Duration)
	assert.Equal(t, 2*time.Second, v.B.Duration)

	b, err := json.Marshal(Duration{5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"5s"`, string(b))

	require.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 10s\nb: 1000\n"), &v))
	assert.Equal(t, 10*time.Second, v.A.Duration)
	assert.Equal(t, time.Microsecond, v.B.Duration)

	require.Error(t, yaml.Unmarshal([]byte("a: [1]\n"), &v))
}

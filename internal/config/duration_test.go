package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "go duration", input: "d: 3s", expected: 3 * time.Second},
		{name: "milliseconds", input: "d: 250ms", expected: 250 * time.Millisecond},
		{name: "integer seconds", input: "d: 600", expected: 600 * time.Second},
		{name: "quoted integer is invalid", input: `d: "600"`, wantErr: true},
		{name: "garbage", input: "d: soon", wantErr: true},
		{name: "sequence", input: "d: [1, 2]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out struct {
				D Duration `yaml:"d"`
			}
			err := yaml.Unmarshal([]byte(tt.input), &out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out.D.Duration())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`10`), &d))
	assert.Equal(t, 10*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Zero(t, d)

	require.Error(t, json.Unmarshal([]byte(`"later"`), &d))

	b, err := json.Marshal(Duration(2 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"2s"`, string(b))
}

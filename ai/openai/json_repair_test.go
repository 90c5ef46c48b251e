package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid JSON unchanged",
			input: `{"answer": "ja", "confidence": 0.9}`,
			want:  `{"answer": "ja", "confidence": 0.9}`,
		},
		{
			name:  "missing opening quote on first key",
			input: `{answer": "ja"}`,
			want:  `{"answer": "ja"}`,
		},
		{
			name:  "missing opening quote after comma",
			input: `{"answer": "ja", reason": "Anspruch besteht"}`,
			want:  `{"answer": "ja", "reason": "Anspruch besteht"}`,
		},
		{
			name:  "empty object",
			input: `{}`,
			want:  `{}`,
		},
		{
			name:  "bare word that is not a key",
			input: `{"list": [1, 2]}`,
			want:  `{"list": [1, 2]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("repaired output parses", func(t *testing.T) {
		got := repairJSON(`{answer": "nein", eligible": false}`)
		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(got), &parsed))
		assert.Equal(t, "nein", parsed["answer"])
	})
}

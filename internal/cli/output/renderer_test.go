package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"JSON", ModeJSON},
		{"markdown", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeJSON},
		{"text piped", ModeText, false, ModeText},
		{"json on terminal", ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.True(t, r.IsJSON())
}

func TestRenderer_Text(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Header(1, "column summary")
	r.KeyValue("Rows", 5)
	r.Table([]string{"Value", "Count"}, [][]any{{"Active", 3}, {"Inactive", 1}})
	r.Success("loaded")
	r.Warn("filter dropped")

	text := out.String()
	assert.Contains(t, text, "Column Summary\n")
	assert.Contains(t, text, "Rows:")
	assert.Contains(t, text, "Active")
	assert.Contains(t, text, "│ Inactive │")
	assert.Contains(t, text, "✓ loaded")
	assert.NotContains(t, text, "\x1b[", "no escape codes without a terminal")
	assert.Equal(t, "warning: filter dropped\n", errOut.String())
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"rows": 5}))
	assert.Equal(t, "{\n  \"rows\": 5\n}\n", out.String())
}

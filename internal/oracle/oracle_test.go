package oracle

import (
	"testing"

	"github.com/lehigh-university-libraries/tourlens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{provider: "gemini", want: "gemini"},
		{provider: "openai", want: "openai"},
		{provider: "ollama", want: "ollama"},
		{provider: "demo", want: "demo"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := New(&config.Config{Provider: tt.provider})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(&config.Config{Provider: "watson"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gemini-1.5-flash", DefaultModel("gemini"))
	assert.Equal(t, "gpt-4o-mini", DefaultModel("openai"))
	assert.Equal(t, "llava", DefaultModel("ollama"))
	assert.Equal(t, "", DefaultModel("demo"))
}

package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaMapMatchesJSONEncoding(t *testing.T) {
	schema := Object("a point", map[string]*Schema{
		"x":    Number("horizontal"),
		"tags": ArrayOf("", String("tag")),
	}, "x")

	encoded, err := json.Marshal(schema)
	require.NoError(t, err)

	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(encoded, &fromJSON))

	mapped, err := json.Marshal(schema.Map())
	require.NoError(t, err)

	var fromMap map[string]any
	require.NoError(t, json.Unmarshal(mapped, &fromMap))

	assert.Equal(t, fromJSON, fromMap)
	assert.Equal(t, "object", fromMap["type"])
	assert.Equal(t, []any{"x"}, fromMap["required"])
}

func TestImageEncodings(t *testing.T) {
	img := Image{Data: []byte("abc"), MIMEType: "image/png"}
	assert.Equal(t, "YWJj", img.Base64())
	assert.Equal(t, "data:image/png;base64,YWJj", img.DataURL())
}

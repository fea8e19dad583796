package llm

import (
	"testing"

	"gora/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToContents_ReplaysRolesAndParts(t *testing.T) {
	history := []session.Turn{
		{Role: session.RoleUser, Parts: []session.Part{session.TextPart("hi"), session.ImagePart("image/png", []byte{1, 2})}},
		{Role: session.RoleModel, Parts: []session.Part{session.TextPart("hello")}},
	}

	contents := toContents(history)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))

	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "hi", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2}, contents[0].Parts[1].InlineData.Data)
}

func TestSupportsGenerate(t *testing.T) {
	assert.True(t, supportsGenerate([]string{"countTokens", "generateContent"}))
	assert.False(t, supportsGenerate([]string{"embedContent"}))
	assert.False(t, supportsGenerate(nil))
}

package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gora/internal/llm"
	"gora/internal/llm/llmtest"
	"gora/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestRegistry_RefreshDefaultsToFirst(t *testing.T) {
	fake := &llmtest.Fake{Models: []string{"models/gemini-2.5-flash", "models/gemini-2.5-pro"}}
	reg := llm.NewRegistry()

	require.NoError(t, reg.Refresh(context.Background(), fake, ""))
	assert.Equal(t, "models/gemini-2.5-flash", reg.Selected())
	assert.Equal(t, fake.Models, reg.Models())
}

func TestRegistry_RefreshPreferred(t *testing.T) {
	fake := &llmtest.Fake{Models: []string{"models/a", "models/b"}}
	reg := llm.NewRegistry()

	require.NoError(t, reg.Refresh(context.Background(), fake, "b"))
	assert.Equal(t, "models/b", reg.Selected())

	require.NoError(t, reg.Refresh(context.Background(), fake, "models/zzz"))
	assert.Equal(t, "models/a", reg.Selected(), "unknown preference falls back to first")
}

func TestRegistry_RefreshFailureEmpties(t *testing.T) {
	reg := llm.NewRegistry()
	require.NoError(t, reg.Refresh(context.Background(), &llmtest.Fake{Models: []string{"models/a"}}, ""))

	err := reg.Refresh(context.Background(), &llmtest.Fake{ListErr: errors.New("bad key")}, "")
	require.Error(t, err)
	assert.Empty(t, reg.Models())
	assert.Equal(t, "", reg.Selected())

	err = reg.Refresh(context.Background(), &llmtest.Fake{}, "")
	assert.ErrorIs(t, err, llm.ErrNoModels)
}

func TestRegistry_Select(t *testing.T) {
	reg := llm.NewRegistry()
	require.NoError(t, reg.Refresh(context.Background(), &llmtest.Fake{Models: []string{"models/a", "models/b"}}, ""))

	require.NoError(t, reg.Select("models/b"))
	assert.Equal(t, "models/b", reg.Selected())

	assert.ErrorIs(t, reg.Select("c"), llm.ErrUnknownModel)
	assert.Equal(t, "models/b", reg.Selected())

	reg.Clear()
	assert.Equal(t, "", reg.Selected())
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"genai 429", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}, true},
		{"wrapped genai 429", fmt.Errorf("send: %w", genai.APIError{Code: 429}), true},
		{"genai status only", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"genai other", genai.APIError{Code: 500, Status: "INTERNAL", Message: "boom"}, false},
		{"status error", llmtest.StatusErr{Code: 429, Status: "Too Many Requests"}, true},
		{"status error other", llmtest.StatusErr{Code: 503, Status: "Unavailable"}, false},
		{"message fallback", errors.New("You exceeded your current quota"), true},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.IsQuotaError(tt.err))
		})
	}
}

func TestFake_StreamChunks(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{"hello world"}, ChunkSize: 4}
	chat, err := fake.StartChat(context.Background(), "models/a", nil)
	require.NoError(t, err)

	var chunks []string
	text, err := chat.SendStream(context.Background(), []session.Part{session.TextPart("hi")}, func(c string) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, []string{"hell", "o wo", "rld"}, chunks)
	require.Len(t, fake.Calls, 1)
	assert.True(t, fake.Calls[0].Stream)
}

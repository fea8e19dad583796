package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gora/internal/logging"
	"gora/internal/session"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient implements Client with the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini API client for the key.
func NewGeminiClient(ctx context.Context, apiKey string) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// ListModels enumerates models whose supported actions include generateContent.
func (g *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	log := logging.Get(logging.CategoryAPI)

	var models []string
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		if supportsGenerate(m.SupportedActions) {
			models = append(models, m.Name)
		}
	}

	log.Debug("models listed", zap.Int("count", len(models)))
	return models, nil
}

func supportsGenerate(actions []string) bool {
	for _, a := range actions {
		if a == GenerateContentAction {
			return true
		}
	}
	return false
}

// StartChat replays history into a fresh chat; no server-side session is assumed.
func (g *GeminiClient) StartChat(ctx context.Context, model string, history []session.Turn) (Chat, error) {
	chat, err := g.client.Chats.Create(ctx, model, nil, toContents(history))
	if err != nil {
		return nil, fmt.Errorf("start chat: %w", err)
	}
	return &geminiChat{chat: chat, model: model}, nil
}

type geminiChat struct {
	chat  *genai.Chat
	model string
}

func (c *geminiChat) Send(ctx context.Context, parts []session.Part) (string, error) {
	resp, err := c.chat.SendMessage(ctx, toPartValues(parts)...)
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", c.model, err)
	}
	return resp.Text(), nil
}

func (c *geminiChat) SendStream(ctx context.Context, parts []session.Part, onChunk func(string)) (string, error) {
	var sb strings.Builder
	for resp, err := range c.chat.SendMessageStream(ctx, toPartValues(parts)...) {
		if err != nil {
			return sb.String(), fmt.Errorf("stream message to %s: %w", c.model, err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return sb.String(), nil
}

func toContents(history []session.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == session.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(toParts(turn.Parts), genai.Role(role)))
	}
	return contents
}

func toParts(parts []session.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

func toPartValues(parts []session.Part) []genai.Part {
	ptrs := toParts(parts)
	out := make([]genai.Part, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// apiStatus unwraps a genai.APIError, returned by value or by pointer.
func apiStatus(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, true
	}
	return 0, "", false
}

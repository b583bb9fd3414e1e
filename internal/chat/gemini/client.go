// gemini — реализация chat.Assistant поверх Google GenAI (Gemini API).
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Параметры генерации ответа.
const (
	temperature = 0.8
	topP        = 0.95
	topK        = 40
)

// generator — часть genai.Models, используемая клиентом.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client отправляет запросы в Gemini.
type Client struct {
	models generator
	model  string
	config *genai.GenerateContentConfig
}

// New создаёт клиент для Gemini API. systemInstruction передаётся модели
// отдельно от текста запроса; пустая строка — без неё.
func New(ctx context.Context, apiKey, model, systemInstruction string) (*Client, error) {
	const op = "gemini.New"

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: gemini api key is required", op)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create genai client: %w", op, err)
	}

	return newClient(client.Models, model, systemInstruction), nil
}

func newClient(g generator, model, systemInstruction string) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr[float32](temperature),
		TopP:           genai.Ptr[float32](topP),
		TopK:           genai.Ptr[float32](topK),
		CandidateCount: 1,
	}
	if s := strings.TrimSpace(systemInstruction); s != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: s}}}
	}

	return &Client{models: g, model: model, config: cfg}
}

// Model возвращает имя модели.
func (c *Client) Model() string {
	return c.model
}

// Complete отправляет prompt и возвращает текст первого кандидата.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "gemini.Complete"

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%s: prompt must not be empty", op)
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("%s: generate content: %w", op, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%s: %w", op, errEmptyResponse)
	}

	var b strings.Builder
	if cand := resp.Candidates[0]; cand != nil && cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.TrimSpace(part.Text))
		}
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("%s: %w", op, errEmptyResponse)
	}

	return b.String(), nil
}

var errEmptyResponse = errors.New("gemini api returned empty response")

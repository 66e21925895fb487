// Package ai talks to the Gemini model for shop advice. Nothing here writes
// to the ledger; a failed call surfaces an error and changes no state.
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrNoAnswer is returned when the model replies without any text.
var ErrNoAnswer = errors.New("ai: model returned no text")

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("ai: GEMINI_API_KEY is not configured")

// Advisor turns a prompt into advice text.
type Advisor interface {
	Advise(ctx context.Context, prompt string) (string, error)
}

// Gemini is an Advisor backed by the Google generative AI API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrDisabled
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash-001"
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Advise sends a single-turn prompt.
func (g *Gemini) Advise(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(400)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoAnswer
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoAnswer
	}
	return strings.TrimSpace(b.String()), nil
}

// Disabled is the Advisor used when no API key is configured.
type Disabled struct{}

func (Disabled) Advise(context.Context, string) (string, error) {
	return "", ErrDisabled
}

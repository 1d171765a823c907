// Package persona generates the role-played, translated reply text for
// a chat turn: first answer as the person the voice belongs to, then
// translate the answer into the session language.
package persona

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:         openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Reply answers the message in character as the given person.
func (c *Client) Reply(ctx context.Context, who, relation, message string) (string, error) {
	system := fmt.Sprintf(
		"You are %s, talking to your %s. Respond to every message as if you were this person. Only write the answer this person would give.",
		who, relation,
	)
	return c.complete(ctx, system, message)
}

// Translate renders the text in the target language, nothing else.
func (c *Client) Translate(ctx context.Context, text, lang string) (string, error) {
	system := fmt.Sprintf(
		"Translate the following text into %s. Only return the translation, nothing else.",
		languageName(lang),
	)
	return c.complete(ctx, system, text)
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	comp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(comp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	text := strings.TrimSpace(comp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion returned empty text")
	}
	return text, nil
}

// languageName maps an ISO 639-1 code to its English display name for
// prompt text ("ar" reads better as "Arabic" to the model).
func languageName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}

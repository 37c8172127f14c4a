// ABOUTME: Drafts platform email templates with OpenAI, falling back to built-in drafts.
// ABOUTME: Drafts use the platform's {lookup} placeholders such as {first_name} and {link}.

package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Draft is a proposed email template.
type Draft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	BodyText    string `json:"body_text"`
	BodyHTML    string `json:"body_html"`
	FromName    string `json:"from_name"`
}

// Generator creates drafts using OpenAI or falls back to static drafts.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Option configures a Generator.
type Option func(*openai.ClientConfig)

// WithBaseURL points the OpenAI client at another endpoint.
func WithBaseURL(url string) Option {
	return func(c *openai.ClientConfig) { c.BaseURL = url }
}

// NewGenerator returns a generator. Without an API key every draft is static.
func NewGenerator(apiKey, model string, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = "gpt-5-mini"
	}
	g := &Generator{model: model, logger: logger}

	if apiKey == "" {
		logger.Info("no OPENAI_API_KEY found, email drafts use built-in templates")
		return g
	}
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	g.client = openai.NewClientWithConfig(cfg)
	logger.Info("email drafts use OpenAI", zap.String("model", model))
	return g
}

// UsesAI reports whether drafts come from OpenAI.
func (g *Generator) UsesAI() bool {
	return g.client != nil
}

// Generate drafts a template for purpose, e.g. "user invite". The second
// result reports whether the draft came from OpenAI.
func (g *Generator) Generate(ctx context.Context, purpose string) (Draft, bool) {
	purpose = strings.TrimSpace(purpose)
	if g.client == nil {
		return staticDraft(purpose), false
	}

	d, err := g.generate(ctx, purpose)
	if err != nil {
		g.logger.Warn("draft generation failed, using built-in template",
			zap.String("purpose", purpose), zap.Error(err))
		return staticDraft(purpose), false
	}
	return d, true
}

func (g *Generator) generate(ctx context.Context, purpose string) (Draft, error) {
	prompt := fmt.Sprintf(`Write an email template for a REST API platform. Purpose: %q.

The platform replaces these lookups when sending: {first_name}, {last_name}, {display_name}, {email}, {link}, {confirm_code}, {instance_name}.
Use {link} wherever the recipient must click through. Keep the HTML body to simple inline markup (p, a, strong, br).

Return a JSON object with: name (snake_case, under 40 chars), description (one sentence), subject, body_text, body_html, from_name.`, purpose)

	d, err := callOpenAI[Draft](ctx, g.client, g.model, prompt)
	if err != nil {
		return Draft{}, err
	}
	if d.Subject == "" || (d.BodyText == "" && d.BodyHTML == "") {
		return Draft{}, fmt.Errorf("incomplete draft")
	}
	return d, nil
}

func callOpenAI[T any](ctx context.Context, client *openai.Client, model, prompt string) (T, error) {
	var result T

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write transactional email templates. Always respond with valid JSON only, no markdown or explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return result, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return result, nil
}

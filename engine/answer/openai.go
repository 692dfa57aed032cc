package answer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askdocs/askdocs/engine/domain"
)

// DefaultChatModel is the completion model used when none is configured.
const DefaultChatModel = openai.GPT3Dot5Turbo

// OpenAIBackend implements Backend over the OpenAI chat completions API.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a chat backend. An empty apiKey is a configuration
// error; callers construct the synthesizer without a backend in that case.
func NewOpenAIBackend(apiKey, model string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, domain.ErrNoBackend
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &OpenAIBackend{client: openai.NewClient(apiKey), model: model}, nil
}

// Complete implements Backend with a single chat completion request. Failures
// are classified into domain.BackendError kinds; the classification is only
// for logging, callers fall back regardless of kind.
func (b *OpenAIBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewBackendError(domain.BackendTransport,
			errors.New("completion returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return domain.NewBackendError(domain.BackendAuth, err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
				return domain.NewBackendError(domain.BackendQuota, err)
			}
			return domain.NewBackendError(domain.BackendRateLimit, err)
		default:
			return domain.NewBackendError(domain.BackendTransport, err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized {
			return domain.NewBackendError(domain.BackendAuth, err)
		}
	}
	return domain.NewBackendError(domain.BackendTransport, fmt.Errorf("chat completion: %w", err))
}

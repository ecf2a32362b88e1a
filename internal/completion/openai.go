package completion

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/yourorg/reviewgen/pkg/types"
)

// OpenAI talks to the OpenAI chat completions API or a compatible endpoint.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAI builds a client. An empty baseURL uses the public API; a nil
// httpClient uses http.DefaultClient.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, httpClient *http.Client, logger *zap.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, timeout: timeout, logger: logger}
}

func (o *OpenAI) Complete(ctx context.Context, system, user string, s types.Sampling) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	model := o.model
	if s.Model != "" {
		model = s.Model
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature:      s.Temperature,
		TopP:             s.TopP,
		MaxTokens:        s.MaxTokens,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		cerr := classified(err, openAIStatus(err))
		o.logger.Warn("chat completion failed",
			zap.String("model", model), zap.String("kind", string(cerr.Kind)),
			zap.Int("status", cerr.Status), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", cerr
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &Error{Kind: KindEmpty, Err: ErrEmptyResponse}
	}
	o.logger.Debug("chat completion",
		zap.String("model", model), zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

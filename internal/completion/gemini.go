package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/yourorg/reviewgen/pkg/types"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewGemini(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) (*Gemini, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" || model == DefaultModel {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{client: client, model: model, timeout: timeout, logger: logger}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, user string, s types.Sampling) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(s.Temperature),
		TopP:              genai.Ptr(s.TopP),
		MaxOutputTokens:   int32(s.MaxTokens),
	}
	if s.FrequencyPenalty != 0 {
		cfg.FrequencyPenalty = genai.Ptr(s.FrequencyPenalty)
	}
	if s.PresencePenalty != 0 {
		cfg.PresencePenalty = genai.Ptr(s.PresencePenalty)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		cerr := classified(err, geminiStatus(err))
		g.logger.Warn("gemini generate failed",
			zap.String("model", g.model), zap.String("kind", string(cerr.Kind)),
			zap.Int("status", cerr.Status), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", cerr
	}
	text := resp.Text()
	if text == "" {
		return "", &Error{Kind: KindEmpty, Err: ErrEmptyResponse}
	}
	g.logger.Debug("gemini generate", zap.String("model", g.model), zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}

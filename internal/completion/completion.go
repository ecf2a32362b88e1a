// Package completion calls a hosted chat-completion API and classifies its failures.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/reviewgen/pkg/types"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 20 * time.Second
)

// Completer sends one system/user prompt pair and returns the first generated message.
type Completer interface {
	Complete(ctx context.Context, system, user string, s types.Sampling) (string, error)
}

// Kind classifies a completion failure.
type Kind string

const (
	KindAuth    Kind = "auth"
	KindQuota   Kind = "quota"
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
	KindEmpty   Kind = "empty"
	KindUnknown Kind = "unknown"
)

var ErrEmptyResponse = errors.New("completion returned empty response")

// Error is a classified completion failure. Status is the upstream HTTP status when known.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a classified error, classifying raw errors on the fly.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Classify(err, 0)
}

// Classify maps an upstream failure onto a Kind. Status codes win over typed
// errors, which win over message matching.
func Classify(err error, status int) Kind {
	if err == nil && status == 0 {
		return KindUnknown
	}
	switch status {
	case 401, 403:
		return KindAuth
	case 429:
		return KindQuota
	}
	if errors.Is(err, ErrEmptyResponse) {
		return KindEmpty
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}
	if err == nil {
		return KindUnknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "authentication"):
		return KindAuth
	case strings.Contains(msg, "quota") || strings.Contains(msg, "limit"):
		return KindQuota
	case strings.Contains(msg, "network") || strings.Contains(msg, "fetch") || strings.Contains(msg, "no such host"):
		return KindNetwork
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return KindTimeout
	}
	return KindUnknown
}

func classified(err error, status int) *Error {
	return &Error{Kind: Classify(err, status), Status: status, Err: err}
}

// withTimeout applies d unless ctx already carries a deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	MaxRPS   float64
	Burst    int
}

// New builds the configured provider, throttled when MaxRPS is positive.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Completer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("completion: api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var c Completer
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		c = NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, nil, logger)
	case ProviderGemini:
		g, err := NewGemini(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, fmt.Errorf("completion: unknown provider %q", cfg.Provider)
	}

	if cfg.MaxRPS > 0 {
		c = NewThrottled(c, cfg.MaxRPS, cfg.Burst, cfg.Timeout)
	}
	return c, nil
}

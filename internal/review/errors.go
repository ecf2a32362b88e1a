package review

import (
	"errors"
	"fmt"

	"github.com/yourorg/reviewgen/internal/completion"
	"github.com/yourorg/reviewgen/pkg/types"
)

// ErrInvalidRequest is wrapped by every normalization failure.
var ErrInvalidRequest = errors.New("invalid request")

// RequestError is a rejected request. Error is the localized user-facing text;
// Detail names the offending field and is meant for logs and the CLI.
type RequestError struct {
	Lang   types.Language
	Detail string
}

func (e *RequestError) Error() string {
	if e.Lang == types.LanguageEN {
		return "Some of your input is invalid. Please check the form and try again."
	}
	return "入力内容に誤りがあります。内容を確認してもう一度お試しください。"
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

func invalid(lang types.Language, format string, args ...any) error {
	return &RequestError{Lang: lang, Detail: fmt.Sprintf(format, args...)}
}

// detail returns the diagnostic text of a normalization failure.
func detail(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Detail
	}
	return err.Error()
}

// RateLimitedError reports a denied request. Its message is localized.
type RateLimitedError struct {
	WaitSeconds int
	Lang        types.Language
}

func (e *RateLimitedError) Error() string {
	if e.Lang == types.LanguageEN {
		return fmt.Sprintf("Too many requests. Please try again in %d seconds.", e.WaitSeconds)
	}
	return fmt.Sprintf("リクエストが多すぎます。%d秒後に再試行してください。", e.WaitSeconds)
}

// GenerationError is a failed completion call. Error returns the user-facing
// message; the upstream error is kept for logs through Unwrap.
type GenerationError struct {
	Kind completion.Kind
	Lang types.Language
	Err  error
}

func (e *GenerationError) Error() string { return Message(e.Kind, e.Lang) }

func (e *GenerationError) Unwrap() error { return e.Err }

var messages = map[completion.Kind][2]string{
	completion.KindAuth:    {"APIキーの認証に失敗しました。管理者に連絡してください。", "API authentication failed. Please contact administrator."},
	completion.KindQuota:   {"API使用制限に達しました。しばらく待ってから再試行してください。", "API usage limit reached. Please try again later."},
	completion.KindNetwork: {"ネットワークエラーが発生しました。接続を確認してください。", "Network error occurred. Please check your connection."},
	completion.KindTimeout: {"リクエストがタイムアウトしました。もう一度試してください。", "Request timed out. Please try again."},
}

var genericFailure = [2]string{"口コミの生成に失敗しました。もう一度お試しください。", "Failed to generate review. Please try again."}

// Message returns the user-facing text for a failure kind. Empty results and
// unknown failures share the generic message.
func Message(kind completion.Kind, lang types.Language) string {
	m, ok := messages[kind]
	if !ok {
		m = genericFailure
	}
	if lang == types.LanguageEN {
		return m[1]
	}
	return m[0]
}

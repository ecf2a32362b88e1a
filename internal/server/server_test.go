package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/reviewgen/internal/completion"
	"github.com/yourorg/reviewgen/internal/config"
	"github.com/yourorg/reviewgen/internal/params"
	"github.com/yourorg/reviewgen/internal/ratelimit"
	"github.com/yourorg/reviewgen/internal/review"
	"github.com/yourorg/reviewgen/internal/session"
	"github.com/yourorg/reviewgen/internal/stats"
	"github.com/yourorg/reviewgen/internal/stores"
	"github.com/yourorg/reviewgen/pkg/types"
)

type stubCompleter struct {
	out string
	err error
}

func (c stubCompleter) Complete(context.Context, string, string, types.Sampling) (string, error) {
	return c.out, c.err
}

type fixture struct {
	srv *Server
	rec *stats.Memory
}

func newTestServer(t *testing.T, llm completion.Completer, limit int, mutate func(*config.Config), opts ...Option) fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Server.AllowedOrigins = []string{"https://form.example"}
	if mutate != nil {
		mutate(cfg)
	}

	rec := stats.NewMemory()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), limit, time.Minute)
	svc := review.NewService(stores.Builtin(), limiter, llm,
		review.WithRandomizer(params.NewSeeded(1)), review.WithRecorder(rec))

	opts = append([]Option{WithSummarizer(rec)}, opts...)
	srv, err := New(cfg, svc, opts...)
	require.NoError(t, err)
	return fixture{srv: srv, rec: rec}
}

func do(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var out types.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

var reviewBody = map[string]any{
	"keywords": []string{"スタッフ最高"},
	"rating":   5,
	"language": "ja",
	"storeId":  "barvel-koza",
}

func TestHealthz(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 6, nil)
	rec := do(t, f.srv.Handler(), http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStoresHidePromptInternals(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 6, nil)

	rec := do(t, f.srv.Handler(), http.MethodGet, "/api/stores", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 2)
	for _, st := range list {
		assert.NotContains(t, st, "promptContext")
		assert.NotContains(t, st, "KeywordVariants")
	}

	rec = do(t, f.srv.Handler(), http.MethodGet, "/api/stores/cebuocto", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var one stores.Store
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&one))
	assert.Equal(t, "cebuocto", one.ID)

	rec = do(t, f.srv.Handler(), http.MethodGet, "/api/stores/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewSuccess(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "  最高の夜でした。 \n"}, 6, nil)

	rec := do(t, f.srv.Handler(), http.MethodPost, "/api/reviews", reviewBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.ReviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "最高の夜でした。", resp.Review)
	assert.Equal(t, "barvel-koza", resp.StoreID)
	assert.NotEmpty(t, resp.MapsURL)
}

func TestReviewRateLimited(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 1, nil)
	h := f.srv.Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/reviews", reviewBody, nil).Code)

	// X-Forwarded-For is ignored unless the proxy is trusted.
	rec := do(t, h, http.MethodPost, "/api/reviews", reviewBody, map[string]string{"X-Forwarded-For": "203.0.113.9"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	body := decodeError(t, rec)
	assert.Equal(t, stats.OutcomeRateLimited, body.Kind)
	assert.Positive(t, body.WaitSeconds)
	assert.LessOrEqual(t, body.WaitSeconds, 60)
	assert.Contains(t, body.Error, "秒後に再試行してください")
}

func TestReviewTrustedProxySeparatesClients(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 1, func(c *config.Config) { c.RateLimit.TrustProxy = true })
	h := f.srv.Handler()

	a := do(t, h, http.MethodPost, "/api/reviews", reviewBody, map[string]string{"X-Forwarded-For": "203.0.113.1"})
	b := do(t, h, http.MethodPost, "/api/reviews", reviewBody, map[string]string{"X-Forwarded-For": "203.0.113.2"})
	assert.Equal(t, http.StatusOK, a.Code)
	assert.Equal(t, http.StatusOK, b.Code)
}

func TestReviewErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		llm    completion.Completer
		body   map[string]any
		status int
		kind   string
		msg    string
	}{
		{
			name:   "invalid rating",
			llm:    stubCompleter{out: "ok"},
			body:   map[string]any{"rating": 9, "storeId": "barvel-koza"},
			status: http.StatusBadRequest,
			kind:   stats.OutcomeInvalid,
			msg:    "入力内容に誤りがあります。内容を確認してもう一度お試しください。",
		},
		{
			name:   "auth",
			llm:    stubCompleter{err: &completion.Error{Kind: completion.KindAuth}},
			body:   map[string]any{"rating": 4, "language": "en", "storeId": "cebuocto"},
			status: http.StatusBadGateway,
			kind:   "auth",
			msg:    "API authentication failed. Please contact administrator.",
		},
		{
			name:   "timeout",
			llm:    stubCompleter{err: &completion.Error{Kind: completion.KindTimeout}},
			body:   reviewBody,
			status: http.StatusGatewayTimeout,
			kind:   "timeout",
			msg:    "リクエストがタイムアウトしました。もう一度試してください。",
		},
		{
			name:   "empty",
			llm:    stubCompleter{out: "   "},
			body:   reviewBody,
			status: http.StatusBadGateway,
			kind:   "empty",
			msg:    "口コミの生成に失敗しました。もう一度お試しください。",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestServer(t, tt.llm, 6, nil)
			rec := do(t, f.srv.Handler(), http.MethodPost, "/api/reviews", tt.body, nil)
			require.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.kind, body.Kind)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, body.Error)
			}
		})
	}
}

func TestReviewRejectsMalformedJSON(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 6, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokenIdentity(t *testing.T) {
	issuer, err := session.NewIssuer("0123456789abcdef0123", time.Hour)
	require.NoError(t, err)
	f := newTestServer(t, stubCompleter{out: "ok"}, 1,
		func(c *config.Config) { c.RateLimit.Identity = "token" }, WithIssuer(issuer))
	h := f.srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/reviews", reviewBody, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session", decodeError(t, rec).Kind)

	issue := func() types.SessionResponse {
		rec := do(t, h, http.MethodPost, "/api/session", map[string]string{"storeId": "barvel-koza"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var s types.SessionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
		return s
	}
	first, second := issue(), issue()
	assert.NotEqual(t, first.ClientID, second.ClientID)

	hdr := map[string]string{TokenHeader: first.Token}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/reviews", reviewBody, hdr).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/api/reviews", reviewBody, hdr).Code)

	// A different session has its own budget on the same address.
	hdr = map[string]string{TokenHeader: second.Token}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/reviews", reviewBody, hdr).Code)

	hdr = map[string]string{TokenHeader: first.Token + "x"}
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/reviews", reviewBody, hdr).Code)
}

func TestTokenIdentityRequiresIssuer(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.RateLimit.Identity = "token"
	svc := review.NewService(stores.Builtin(), nil, stubCompleter{out: "ok"})
	_, err := New(cfg, svc)
	assert.Error(t, err)
}

func TestSessionDisabledForIPIdentity(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 6, nil)
	rec := do(t, f.srv.Handler(), http.MethodPost, "/api/session", map[string]string{"storeId": "barvel-koza"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 1, nil)
	h := f.srv.Handler()
	do(t, h, http.MethodPost, "/api/reviews", reviewBody, nil)
	do(t, h, http.MethodPost, "/api/reviews", reviewBody, nil)

	rec := do(t, h, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum types.StatsSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sum))
	assert.Equal(t, int64(2), sum.Total)
	assert.NotContains(t, rec.Body.String(), "スタッフ")
}

func TestCORSPreflight(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 6, nil)
	h := f.srv.Handler()

	rec := do(t, h, http.MethodOptions, "/api/reviews", nil, map[string]string{"Origin": "https://form.example"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://form.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), TokenHeader)

	rec = do(t, h, http.MethodOptions, "/api/reviews", nil, map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type windowSummarizer struct {
	stats.Summarizer
	since time.Time
}

func (w *windowSummarizer) SummarySince(_ context.Context, since time.Time) (types.StatsSummary, error) {
	w.since = since
	return types.StatsSummary{Total: 1}, nil
}

func TestStatsWindow(t *testing.T) {
	f := newTestServer(t, stubCompleter{out: "ok"}, 6, nil)
	rec := do(t, f.srv.Handler(), http.MethodGet, "/api/stats?since=15m", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "memory stats keep no timestamps")

	ws := &windowSummarizer{Summarizer: stats.NewMemory()}
	f = newTestServer(t, stubCompleter{out: "ok"}, 6, nil, WithSummarizer(ws))
	h := f.srv.Handler()

	rec = do(t, h, http.MethodGet, "/api/stats?since=15m", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, time.Now().Add(-15*time.Minute), ws.since, 5*time.Second)

	rec = do(t, h, http.MethodGet, "/api/stats?since=soon", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

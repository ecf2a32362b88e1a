// Package server exposes the review service over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yourorg/reviewgen/internal/completion"
	"github.com/yourorg/reviewgen/internal/config"
	"github.com/yourorg/reviewgen/internal/ratelimit"
	"github.com/yourorg/reviewgen/internal/review"
	"github.com/yourorg/reviewgen/internal/session"
	"github.com/yourorg/reviewgen/internal/stats"
	"github.com/yourorg/reviewgen/pkg/types"
)

// TokenHeader carries the session token when ratelimit.identity is "token".
const TokenHeader = "X-Client-Token"

const maxBodyBytes = 64 << 10

type Server struct {
	cfg     *config.Config
	svc     *review.Service
	issuer  *session.Issuer
	summary stats.Summarizer
	logger  *zap.Logger
	router  chi.Router
}

type Option func(*Server)

// WithIssuer enables token identity. Required when ratelimit.identity is "token".
func WithIssuer(i *session.Issuer) Option {
	return func(s *Server) { s.issuer = i }
}

// WithSummarizer enables GET /api/stats.
func WithSummarizer(sm stats.Summarizer) Option {
	return func(s *Server) { s.summary = sm }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New constructs a Server with routes registered.
func New(cfg *config.Config, svc *review.Service, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if svc == nil {
		return nil, errors.New("review service is nil")
	}
	srv := &Server{cfg: cfg, svc: svc, logger: zap.NewNop()}
	for _, o := range opts {
		o(srv)
	}
	if srv.tokenIdentity() && srv.issuer == nil {
		return nil, errors.New("token identity requires a session issuer")
	}
	srv.registerRoutes()
	return srv, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) tokenIdentity() bool {
	return s.cfg.RateLimit.Identity == "token"
}

func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.cfg.RateLimit.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(withCORS(s.cfg.Server.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/stores", s.handleStores)
		r.Get("/stores/{id}", s.handleStore)
		r.Post("/session", s.handleSession)
		r.Post("/reviews", s.handleReview)
		r.Get("/stats", s.handleStats)
	})
	s.router = r
}

func (s *Server) handleStores(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Catalog().All())
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	st, ok := s.svc.Catalog().Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, types.ErrorResponse{Error: "store not found"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.tokenIdentity() {
		writeError(w, http.StatusNotFound, types.ErrorResponse{Error: "sessions are disabled"})
		return
	}
	var req struct {
		StoreID string `json:"storeId"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrorResponse{Error: "invalid json", Kind: stats.OutcomeInvalid})
		return
	}
	st, ok := s.svc.Catalog().Resolve(req.StoreID)
	if !ok {
		writeError(w, http.StatusBadRequest, types.ErrorResponse{Error: "unknown store", Kind: stats.OutcomeInvalid})
		return
	}
	tok, err := s.issuer.Issue(st.ID)
	if err != nil {
		s.logger.Error("issue session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, types.ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, types.SessionResponse{Token: tok.Value, ClientID: tok.ClientID, ExpiresAt: tok.ExpiresAt})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req types.GenerationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrorResponse{Error: "invalid json", Kind: stats.OutcomeInvalid})
		return
	}

	if s.tokenIdentity() {
		clientID, err := s.issuer.Verify(strings.TrimSpace(r.Header.Get(TokenHeader)))
		if err != nil {
			writeError(w, http.StatusUnauthorized, types.ErrorResponse{Error: sessionExpired(req.Language), Kind: "session"})
			return
		}
		req.ClientID = clientID
	} else {
		req.ClientID = ratelimit.ClientIP(r, s.cfg.RateLimit.TrustProxy)
	}

	text, err := s.svc.Generate(r.Context(), req)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}

	resp := types.ReviewResponse{Review: text}
	if st, ok := s.svc.Catalog().Resolve(req.StoreID); ok {
		resp.StoreID = st.ID
		resp.MapsURL = st.GoogleMapsURL
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	var rl *review.RateLimitedError
	var ge *review.GenerationError
	switch {
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(rl.WaitSeconds))
		writeError(w, http.StatusTooManyRequests, types.ErrorResponse{
			Error: rl.Error(), Kind: stats.OutcomeRateLimited, WaitSeconds: rl.WaitSeconds,
		})
	case errors.Is(err, review.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error(), Kind: stats.OutcomeInvalid})
	case errors.As(err, &ge):
		status := http.StatusBadGateway
		if ge.Kind == completion.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, types.ErrorResponse{Error: ge.Error(), Kind: string(ge.Kind)})
	default:
		s.logger.Error("unexpected generate error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, types.ErrorResponse{Error: "internal error"})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.summary == nil {
		writeError(w, http.StatusNotFound, types.ErrorResponse{Error: "stats are disabled"})
		return
	}
	var sum types.StatsSummary
	var err error
	if v := r.URL.Query().Get("since"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, types.ErrorResponse{Error: "since must be a positive duration such as 15m"})
			return
		}
		ws, ok := s.summary.(stats.WindowSummarizer)
		if !ok {
			writeError(w, http.StatusBadRequest, types.ErrorResponse{Error: "this stats backend has no time window"})
			return
		}
		sum, err = ws.SummarySince(r.Context(), time.Now().Add(-d))
	} else {
		sum, err = s.summary.Summary(r.Context())
	}
	if err != nil {
		s.logger.Error("stats summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, types.ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func sessionExpired(lang types.Language) string {
	if lang == types.LanguageEN {
		return "Your session has expired. Please reload the page."
	}
	return "セッションの有効期限が切れました。ページを再読み込みしてください。"
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body types.ErrorResponse) {
	writeJSON(w, status, body)
}

// Package review implements the generate-review operation: normalize the form
// input, enforce the per-client rate limit, randomize the style params, assemble
// the prompt and call the completion API.
package review

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/yourorg/reviewgen/internal/completion"
	"github.com/yourorg/reviewgen/internal/params"
	"github.com/yourorg/reviewgen/internal/prompt"
	"github.com/yourorg/reviewgen/internal/ratelimit"
	"github.com/yourorg/reviewgen/internal/stats"
	"github.com/yourorg/reviewgen/internal/stores"
	"github.com/yourorg/reviewgen/pkg/types"
)

const (
	DefaultClientID = "default"
	MaxStaffName    = 50
)

type Service struct {
	catalog *stores.Catalog
	limiter *ratelimit.Limiter
	llm     completion.Completer
	rnd     *params.Randomizer
	asm     *prompt.Assembler
	rec     stats.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithRandomizer(r *params.Randomizer) Option {
	return func(s *Service) { s.rnd = r }
}

func WithRecorder(r stats.Recorder) Option {
	return func(s *Service) { s.rec = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(catalog *stores.Catalog, limiter *ratelimit.Limiter, llm completion.Completer, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		limiter: limiter,
		llm:     llm,
		rec:     stats.Nop{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.rnd == nil {
		s.rnd = params.New()
	}
	s.asm = prompt.New(s.rnd)
	return s
}

func (s *Service) Catalog() *stores.Catalog { return s.catalog }

// Generate drafts one review. Errors are *RateLimitedError, *GenerationError or
// wrap ErrInvalidRequest. Every call is recorded with its Outcome.
func (s *Service) Generate(ctx context.Context, req types.GenerationRequest) (_ string, err error) {
	start := s.now()
	recorded := req
	defer func() { s.record(ctx, recorded, Outcome(err), start) }()

	store, norm, err := s.Normalize(req)
	if err != nil {
		s.logger.Info("invalid request", zap.String("store", req.StoreID), zap.String("detail", detail(err)))
		return "", err
	}
	recorded = norm

	if s.limiter != nil {
		res, lerr := s.limiter.Check(ctx, norm.ClientID)
		switch {
		case lerr != nil:
			// Fail open: a broken limiter backend must not take generation down.
			s.logger.Warn("rate limit check failed", zap.String("store", store.ID), zap.Error(lerr))
		case !res.Allowed:
			wait := res.WaitSeconds(s.limiter.Now())
			s.logger.Info("rate limit exceeded", zap.String("store", store.ID), zap.Int("wait_seconds", wait))
			return "", &RateLimitedError{WaitSeconds: wait, Lang: norm.Language}
		}
	}

	p := s.rnd.Generate(norm.Gender, norm.Rating, norm.HasStaff())
	pr := s.asm.Build(store, norm, p)
	s.logger.Debug("generating review",
		zap.String("store", store.ID), zap.String("lang", string(norm.Language)),
		zap.Int("rating", norm.Rating), zap.String("style", p.StylePattern), zap.Int("length", p.Length))

	text, err := s.llm.Complete(ctx, pr.System, pr.User, pr.Sampling)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = &completion.Error{Kind: completion.KindEmpty, Err: completion.ErrEmptyResponse}
		}
	}
	if err != nil {
		kind := completion.KindOf(err)
		s.logger.Error("review generation failed",
			zap.String("store", store.ID), zap.String("kind", string(kind)), zap.Error(err))
		return "", &GenerationError{Kind: kind, Lang: norm.Language, Err: err}
	}
	return text, nil
}

// Preview normalizes req and assembles its prompt without touching the rate
// limiter or the completion API.
func (s *Service) Preview(req types.GenerationRequest) (prompt.Prompt, params.Params, error) {
	store, norm, err := s.Normalize(req)
	if err != nil {
		return prompt.Prompt{}, params.Params{}, err
	}
	p := s.rnd.Generate(norm.Gender, norm.Rating, norm.HasStaff())
	return s.asm.Build(store, norm, p), p, nil
}

// Normalize resolves the store and rewrites req into canonical form: defaults
// filled in, English option labels mapped to Japanese, keywords checked against
// the store's closed list.
func (s *Service) Normalize(req types.GenerationRequest) (stores.Store, types.GenerationRequest, error) {
	out := req
	switch types.Language(strings.ToLower(strings.TrimSpace(string(req.Language)))) {
	case "", types.LanguageJA:
		out.Language = types.LanguageJA
	case types.LanguageEN:
		out.Language = types.LanguageEN
	default:
		return stores.Store{}, req, invalid(types.LanguageJA, "unsupported language %q", req.Language)
	}
	lang := out.Language

	store, ok := s.catalog.Resolve(req.StoreID)
	if !ok {
		return stores.Store{}, req, invalid(lang, "unknown store %q", req.StoreID)
	}
	out.StoreID = store.ID

	switch {
	case req.Rating == 0:
		out.Rating = store.Features.Rating.Default
	case req.Rating < 1 || req.Rating > 5:
		return store, req, invalid(lang, "rating must be between 1 and 5, got %d", req.Rating)
	}

	var err error
	if out.Companion, err = option(store.Features.Companion, req.Companion, "companion", lang); err != nil {
		return store, req, err
	}
	if out.Gender, err = option(store.Features.Gender, req.Gender, "gender", lang); err != nil {
		return store, req, err
	}
	if !store.Features.VisitType.Enabled {
		out.VisitType = store.Features.VisitType.First()
	} else if out.VisitType, err = option(store.Features.VisitType, req.VisitType, "visitType", lang); err != nil {
		return store, req, err
	}

	out.Keywords = nil
	for _, kw := range req.Keywords {
		c, ok := store.Features.Keywords.Canonical(kw)
		if !ok {
			return store, req, invalid(lang, "keyword %q is not offered by %s", kw, store.ID)
		}
		if !slices.Contains(out.Keywords, c) {
			out.Keywords = append(out.Keywords, c)
		}
	}

	out.StaffName = strings.TrimSpace(req.StaffName)
	if !store.Features.StaffName.Enabled {
		out.StaffName = ""
	}
	if utf8.RuneCountInString(out.StaffName) > MaxStaffName {
		return store, req, invalid(lang, "staff name longer than %d characters", MaxStaffName)
	}

	out.ClientID = strings.TrimSpace(req.ClientID)
	if out.ClientID == "" {
		out.ClientID = DefaultClientID
	}
	return store, out, nil
}

func option(f stores.OptionFeature, v, name string, lang types.Language) (string, error) {
	if strings.TrimSpace(v) == "" {
		return f.First(), nil
	}
	c, ok := f.Canonical(v)
	if !ok {
		return "", invalid(lang, "unknown %s %q", name, v)
	}
	return c, nil
}

func (s *Service) record(ctx context.Context, req types.GenerationRequest, outcome string, start time.Time) {
	store, lang := "unknown", req.Language
	if st, ok := s.catalog.Resolve(req.StoreID); ok {
		store = st.ID
	}
	if lang != types.LanguageJA && lang != types.LanguageEN {
		lang = ""
	}
	ev := stats.Event{
		StoreID:  store,
		Language: string(lang),
		Rating:   req.Rating,
		Outcome:  outcome,
		Latency:  s.now().Sub(start),
		At:       start,
	}
	if err := s.rec.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("stats record failed", zap.String("outcome", outcome), zap.Error(err))
	}
}

// Outcome maps a Generate error onto a stats outcome.
func Outcome(err error) string {
	var rl *RateLimitedError
	var ge *GenerationError
	switch {
	case err == nil:
		return stats.OutcomeOK
	case errors.As(err, &rl):
		return stats.OutcomeRateLimited
	case errors.Is(err, ErrInvalidRequest):
		return stats.OutcomeInvalid
	case errors.As(err, &ge):
		return string(ge.Kind)
	}
	return stats.OutcomeUnknown
}

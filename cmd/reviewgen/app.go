package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourorg/reviewgen/internal/completion"
	"github.com/yourorg/reviewgen/internal/config"
	"github.com/yourorg/reviewgen/internal/logging"
	"github.com/yourorg/reviewgen/internal/params"
	"github.com/yourorg/reviewgen/internal/ratelimit"
	"github.com/yourorg/reviewgen/internal/review"
	"github.com/yourorg/reviewgen/internal/session"
	"github.com/yourorg/reviewgen/internal/stats"
	"github.com/yourorg/reviewgen/internal/stores"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	catalog  *stores.Catalog
	rnd      *params.Randomizer
	rdb      *redis.Client
	memStore *ratelimit.MemoryStore
	limiter  *ratelimit.Limiter
	recorder stats.Recorder
	summary  stats.Summarizer
	sqlite   *stats.SQLite
	issuer   *session.Issuer
	svc      *review.Service
	closers  []func() error
}

type buildOpts struct {
	llm     bool
	limiter bool
	seed    uint64
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, o buildOpts) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.catalog, err = stores.Load(cfg.Stores.File); err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}

	loc, err := params.LoadLocation(cfg.Stores.TimeZone)
	if err != nil {
		return nil, err
	}
	if o.seed != 0 {
		a.rnd = params.NewSeeded(o.seed, params.WithLocation(loc))
	} else {
		a.rnd = params.New(params.WithLocation(loc))
	}

	if needsRedis(cfg, o) {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, a.rdb.Close)
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
	}

	if err := a.buildStats(); err != nil {
		return nil, err
	}

	if o.limiter {
		var st ratelimit.Store
		switch cfg.RateLimit.Backend {
		case "redis":
			st = ratelimit.NewRedisStore(a.rdb, ratelimit.WithKeyPrefix(cfg.RateLimit.KeyPrefix))
		default:
			a.memStore = ratelimit.NewMemoryStore(ratelimit.WithSweepEvery(cfg.RateLimit.SweepEvery))
			st = a.memStore
		}
		a.limiter = ratelimit.NewLimiter(st, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	if o.limiter && cfg.RateLimit.Identity == "token" {
		if a.issuer, err = session.NewIssuer(cfg.Session.Secret, cfg.Session.TTL); err != nil {
			return nil, err
		}
	}

	var llm completion.Completer
	if o.llm {
		llm, err = completion.New(ctx, completion.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.Timeout,
			MaxRPS:   cfg.LLM.MaxRPS,
			Burst:    cfg.LLM.Burst,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	a.svc = review.NewService(a.catalog, a.limiter, llm,
		review.WithRandomizer(a.rnd),
		review.WithRecorder(a.recorder),
		review.WithLogger(logger),
	)
	return a, nil
}

func needsRedis(cfg *config.Config, o buildOpts) bool {
	if o.limiter {
		return cfg.UsesRedis()
	}
	return cfg.Stats.Backend == stats.BackendRedis
}

func (a *app) buildStats() error {
	a.recorder = stats.Nop{}
	switch a.cfg.Stats.Backend {
	case stats.BackendMemory:
		m := stats.NewMemory()
		a.recorder, a.summary = m, m
	case stats.BackendSQLite:
		s, err := stats.NewSQLite(a.cfg.Stats.Path)
		if err != nil {
			return fmt.Errorf("open stats db: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		a.recorder, a.summary, a.sqlite = s, s, s
	case stats.BackendRedis:
		r := stats.NewRedis(a.rdb, stats.WithRedisPrefix(a.cfg.Stats.KeyPrefix), stats.WithRedisTTL(a.cfg.Stats.TTL))
		a.recorder, a.summary = r, r
	case stats.BackendNone:
	default:
		return stats.ValidBackend(a.cfg.Stats.Backend)
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

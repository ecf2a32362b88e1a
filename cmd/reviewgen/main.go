package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/reviewgen/internal/config"
	"github.com/yourorg/reviewgen/internal/review"
	"github.com/yourorg/reviewgen/internal/server"
	"github.com/yourorg/reviewgen/internal/stats"
	"github.com/yourorg/reviewgen/internal/stores"
	"github.com/yourorg/reviewgen/pkg/types"
)

const defaultConfigContent = `llm:
  provider: "openai"
  api_key: ""
  base_url: "https://api.openai.com/v1"
  model: "gpt-4o-mini"
  timeout: 20s
  max_rps: 0

ratelimit:
  backend: "memory"
  limit: 6
  window: 1m
  sweep_every: 1m
  identity: "ip"
  trust_proxy: false

redis:
  addr: "127.0.0.1:6379"
  password: ""
  db: 0

session:
  secret: ""
  ttl: 12h

stats:
  backend: "memory"
  path: "./reviewgen-stats.db"

stores:
  file: ""
  time_zone: "Asia/Tokyo"

server:
  host: "127.0.0.1"
  port: 3000
  allowed_origins:
    - "http://localhost:3000"

log:
  level: "info"
  format: "json"
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "reviewgen",
		Short:         "Draft Google Maps reviews for partner stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.reviewgen/config.yaml)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newGenerateCmd(&cfgPath))
	root.AddCommand(newPromptCmd(&cfgPath))
	root.AddCommand(newStoresCmd(&cfgPath))
	root.AddCommand(newStatsCmd(&cfgPath))
	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create ~/.reviewgen/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := config.DefaultPath()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfgFile), 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o600); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "please update llm.api_key in", cfgFile)
			return nil
		},
	}
}

func newServeCmd(cfgPath *string) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.ValidateGenerate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, buildOpts{llm: true, limiter: true})
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []server.Option{server.WithLogger(logger)}
			if a.issuer != nil {
				opts = append(opts, server.WithIssuer(a.issuer))
			}
			if a.summary != nil {
				opts = append(opts, server.WithSummarizer(a.summary))
			}
			srv, err := server.New(cfg, a.svc, opts...)
			if err != nil {
				return err
			}
			return serve(ctx, a, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVar(&port, "port", 3000, "server port")
	return cmd
}

// serve runs the HTTP server and the limiter janitor until ctx is cancelled.
func serve(ctx context.Context, a *app, h http.Handler) error {
	httpSrv := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      h,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("provider", a.cfg.LLM.Provider),
			zap.String("identity", a.cfg.RateLimit.Identity),
			zap.Int("rate_limit", a.limiter.Limit()),
			zap.Duration("rate_window", a.limiter.Window()),
			zap.Strings("stores", a.catalog.SortedIDs()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if a.memStore != nil {
		g.Go(func() error { return a.memStore.RunJanitor(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type requestFlags struct {
	store     string
	rating    int
	keywords  []string
	staff     string
	companion string
	gender    string
	visit     string
	lang      string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.store, "store", "", "store id (default store when empty)")
	cmd.Flags().IntVar(&f.rating, "rating", 0, "star rating 1-5 (store default when 0)")
	cmd.Flags().StringSliceVarP(&f.keywords, "keyword", "k", nil, "positive keyword, repeatable")
	cmd.Flags().StringVar(&f.staff, "staff", "", "staff name or descriptor")
	cmd.Flags().StringVar(&f.companion, "companion", "", "companion type")
	cmd.Flags().StringVar(&f.gender, "gender", "", "gender")
	cmd.Flags().StringVar(&f.visit, "visit", "", "visit type")
	cmd.Flags().StringVar(&f.lang, "lang", "ja", "ja or en")
}

func (f *requestFlags) request() types.GenerationRequest {
	return types.GenerationRequest{
		Keywords:  f.keywords,
		StaffName: f.staff,
		Rating:    f.rating,
		Companion: f.companion,
		Gender:    f.gender,
		VisitType: f.visit,
		Language:  types.Language(f.lang),
		ClientID:  "cli",
		StoreID:   f.store,
	}
}

// checkStore rejects an unknown --store before any work is done.
func (f *requestFlags) checkStore(c *stores.Catalog) error {
	if f.store == "" || c.Valid(f.store) {
		return nil
	}
	return fmt.Errorf("unknown store %q (known: %s)", f.store, strings.Join(c.SortedIDs(), ", "))
}

// cliError swaps the localized form message of a rejected request for its detail.
func cliError(err error) error {
	var re *review.RequestError
	if errors.As(err, &re) {
		return fmt.Errorf("invalid request: %s", re.Detail)
	}
	return err
}

func newGenerateCmd(cfgPath *string) *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft one review and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateGenerate(); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger, buildOpts{llm: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := rf.checkStore(a.catalog); err != nil {
				return err
			}

			text, err := a.svc.Generate(cmd.Context(), rf.request())
			if err != nil {
				return cliError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	rf.bind(cmd)
	return cmd
}

func newPromptCmd(cfgPath *string) *cobra.Command {
	var rf requestFlags
	var seed uint64
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the assembled prompt without calling the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			cfg.Stats.Backend = "none"
			a, err := newApp(cmd.Context(), cfg, logger, buildOpts{seed: seed})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := rf.checkStore(a.catalog); err != nil {
				return err
			}

			p, prm, err := a.svc.Preview(rf.request())
			if err != nil {
				return cliError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "=== system ===\n%s\n\n=== user ===\n%s\n\n=== params ===\n", p.System, p.User)
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(prm); err != nil {
				return err
			}
			fmt.Fprintln(out, "=== sampling ===")
			return enc.Encode(p.Sampling)
		},
	}
	rf.bind(cmd)
	cmd.Flags().Uint64Var(&seed, "seed", 0, "randomizer seed (random when 0)")
	return cmd
}

func newStoresCmd(cfgPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List configured stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			cfg.Stats.Backend = "none"
			a, err := newApp(cmd.Context(), cfg, logger, buildOpts{})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(a.catalog.All())
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTEMPLATE\tDEFAULT")
			for _, id := range a.catalog.SortedIDs() {
				st, _ := a.catalog.Get(id)
				def := ""
				if id == a.catalog.DefaultID() {
					def = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.ID, st.Name, st.Template, def)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print full public store configs as JSON")
	return cmd
}

func newStatsCmd(cfgPath *string) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded generation outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			switch cfg.Stats.Backend {
			case "sqlite", "redis":
			default:
				return fmt.Errorf("stats backend %q keeps no data outside the server process", cfg.Stats.Backend)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger, buildOpts{})
			if err != nil {
				return err
			}
			defer a.Close()

			var sum types.StatsSummary
			if since > 0 {
				ws, ok := a.summary.(stats.WindowSummarizer)
				if !ok {
					return fmt.Errorf("stats backend %q has no time window", cfg.Stats.Backend)
				}
				sum, err = ws.SummarySince(cmd.Context(), time.Now().Add(-since))
			} else {
				sum, err = a.summary.Summary(cmd.Context())
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STORE\tOUTCOME\tCOUNT")
			for _, c := range sum.Counts {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", c.StoreID, c.Outcome, c.Count)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "total: %d\n", sum.Total)
			if a.sqlite != nil {
				avg, err := a.sqlite.AverageLatency(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "average latency (ok): %s\n", avg.Round(time.Millisecond))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only count events from this long ago, e.g. 1h")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tradescan/marketscout/internal/config"
	"github.com/tradescan/marketscout/internal/embed"
	"github.com/tradescan/marketscout/internal/feed"
	"github.com/tradescan/marketscout/internal/market"
	"github.com/tradescan/marketscout/internal/match"
	"github.com/tradescan/marketscout/internal/observability"
	"github.com/tradescan/marketscout/internal/ratelimit"
	"github.com/tradescan/marketscout/internal/server"
	"github.com/tradescan/marketscout/internal/store"
	"github.com/tradescan/marketscout/internal/watch"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "marketscout",
		Short: "Semantic matching of news against prediction markets",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/marketscout.yaml", "Config file path")

	var (
		title string
		body  string
	)
	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "Rank markets against one news text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), configPath, title, body)
		},
	}
	matchCmd.Flags().StringVar(&title, "title", "", "News title")
	matchCmd.Flags().StringVar(&body, "body", "", "News body text")
	_ = matchCmd.MarkFlagRequired("title")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll configured feeds and match each batch on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), configPath)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate store counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), configPath)
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available embedding providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available embedding providers:")
			fmt.Println()
			fmt.Println("  openai   OpenAI-compatible /embeddings endpoint (set base_url for Groq, Ollama, vLLM, ...)")
			fmt.Println("  cohere   Cohere V2 Embed API")
			fmt.Println()
			fmt.Println("Configure in marketscout.yaml or via environment:")
			fmt.Println("  MARKETSCOUT_EMBEDDING_PROVIDER=cohere")
			fmt.Println("  MARKETSCOUT_EMBEDDING_API_KEY=...")
		},
	}

	rootCmd.AddCommand(matchCmd, watchCmd, serveCmd, statsCmd, providersCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// pipeline bundles everything a command needs.
type pipeline struct {
	cfg       *config.Config
	matcher   *match.Matcher
	markets   store.MarketStore
	contracts store.ContractStore
	tracing   *observability.TracerProvider
}

func (p *pipeline) shutdown(ctx context.Context) {
	if p.tracing != nil {
		if err := p.tracing.Shutdown(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}
}

// buildPipeline wires config, logging, tracing, the governed embedder, and
// both stores into a ready matcher.
func buildPipeline(ctx context.Context, configPath string) (*pipeline, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "marketscout",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	provider, err := embed.NewFactory().Create(embed.ProviderConfig{
		Provider: cfg.Embedding.Provider,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	governor := ratelimit.New(&ratelimit.Config{
		RequestsPerMinute: cfg.Embedding.Rate.RequestsPerMinute,
		MinDelay:          cfg.Embedding.Rate.MinDelay(),
		BaseBackoff:       cfg.Embedding.Rate.BaseBackoff(),
		MaxBackoff:        cfg.Embedding.Rate.MaxBackoff(),
		MaxRetries:        cfg.Embedding.Rate.MaxRetries,
	})
	embedder := embed.New(provider, governor, cfg.Embedding.BatchSize)

	markets, err := store.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return nil, err
	}
	contracts, err := store.NewRedis(ctx, store.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	matcher := match.New(embedder, markets, contracts, match.Config{
		TopN:          cfg.Match.TopN,
		MinSimilarity: cfg.Match.MinSimilarity,
	})
	if err := matcher.Init(); err != nil {
		return nil, err
	}

	slog.Info("pipeline ready",
		"provider", provider.Name(),
		"vector", fmt.Sprintf("%s:%d/%s", cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection),
		"redis", cfg.Redis.Addr)

	return &pipeline{cfg: cfg, matcher: matcher, markets: markets, contracts: contracts, tracing: tracing}, nil
}

func setupLogging(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func runMatch(ctx context.Context, configPath, title, body string) error {
	p, err := buildPipeline(ctx, configPath)
	if err != nil {
		return err
	}
	defer p.shutdown(ctx)

	item := market.NewsItem{
		ID:          "cli",
		Source:      "cli",
		Title:       title,
		Body:        body,
		PublishedAt: time.Now(),
	}
	matches, err := p.matcher.Match(ctx, item)
	if err != nil {
		return err
	}
	fmt.Print(match.FormatPrompt(matches, p.cfg.Match.MaxPromptMarkets))
	return nil
}

func runWatch(ctx context.Context, configPath string) error {
	p, err := buildPipeline(ctx, configPath)
	if err != nil {
		return err
	}
	defer p.shutdown(context.Background())

	if len(p.cfg.Feeds.URLs) == 0 {
		return fmt.Errorf("no feeds configured; set feeds.urls")
	}

	w := watch.New(feed.NewFetcher(), p.matcher, watch.Config{
		FeedURLs:         p.cfg.Feeds.URLs,
		Schedule:         p.cfg.Feeds.Schedule,
		MaxPromptMarkets: p.cfg.Match.MaxPromptMarkets,
	}, func(item market.NewsItem, digest string) {
		fmt.Printf("=== %s (%s)\n%s\n", item.Title, item.Source, digest)
	})

	slog.Info("watching feeds", "count", len(p.cfg.Feeds.URLs), "schedule", p.cfg.Feeds.Schedule)
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runServe(ctx context.Context, configPath string) error {
	p, err := buildPipeline(ctx, configPath)
	if err != nil {
		return err
	}
	defer p.shutdown(context.Background())

	srv := server.New(p.matcher, p.cfg.Match.MaxPromptMarkets,
		server.StoreChecks(p.markets, p.contracts)...)

	slog.Info("serving matching API", "addr", p.cfg.Server.Addr)
	return srv.Serve(ctx, p.cfg.Server.Addr)
}

func runStats(ctx context.Context, configPath string) error {
	p, err := buildPipeline(ctx, configPath)
	if err != nil {
		return err
	}
	defer p.shutdown(ctx)

	stats, err := p.matcher.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Active markets:          %d\n", stats.ActiveMarkets)
	fmt.Printf("Active contracts:        %d\n", stats.ActiveContracts)
	fmt.Printf("Markets with embeddings: %d\n", stats.MarketsWithEmbeddings)
	return nil
}

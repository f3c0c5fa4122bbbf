// The agent binary runs the market intelligence agent: an MCP stdio
// server for queries, an HTTP side server for health/manifest/metrics,
// and an optional watchlist scheduler.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lexmanthefirst/marketmind/internal/agent"
	"github.com/lexmanthefirst/marketmind/internal/assets"
	"github.com/lexmanthefirst/marketmind/internal/config"
	"github.com/lexmanthefirst/marketmind/internal/extract"
	"github.com/lexmanthefirst/marketmind/internal/llm"
	"github.com/lexmanthefirst/marketmind/internal/market"
	"github.com/lexmanthefirst/marketmind/internal/news"
	"github.com/lexmanthefirst/marketmind/internal/notify"
	"github.com/lexmanthefirst/marketmind/internal/platform/httpclient"
	"github.com/lexmanthefirst/marketmind/internal/scheduler"
	"github.com/lexmanthefirst/marketmind/internal/server"
	"github.com/lexmanthefirst/marketmind/internal/session"
)

type analyzeArgs struct {
	Query     string `json:"query" jsonschema:"natural-language market question, e.g. 'BTC price' or 'EUR/USD outlook'"`
	ContextID string `json:"context_id,omitempty" jsonschema:"optional conversation id for session continuity"`
}

type summaryArgs struct{}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Missing .env is fine; environment variables may come from anywhere.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().
		Str("name", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("Starting market intelligence agent")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional; everything degrades to in-memory behavior.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable; caching and sessions degrade to memory")
	}

	a := buildAgent(cfg, redisClient)

	httpServer := server.New(cfg.Server.GetServerAddr(), redisClient)
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	if cfg.Watchlist.Enabled {
		sched := scheduler.New(a, cfg.Watchlist.Subjects, cfg.Watchlist.Interval(), config.NewLogger("scheduler"))
		go sched.Run(ctx)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "marketmind",
		Version: cfg.App.Version,
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "analyze_market",
		Description: "Analyze a cryptocurrency or forex pair: price, technical indicators, news, and a directional outlook.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args analyzeArgs) (*mcp.CallToolResult, *agent.TaskResult, error) {
		result, err := a.ProcessQuery(ctx, args.Query, args.ContextID)
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Status.Message}},
		}, result, nil
	})

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "market_summary",
		Description: "Broad market overview: top performers, trending coins, new listings, forex majors, and overall sentiment.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ summaryArgs) (*mcp.CallToolResult, *agent.TaskResult, error) {
		result, err := a.ProcessQuery(ctx, "market overview", "")
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Status.Message}},
		}, result, nil
	})

	log.Info().Msg("MCP server listening on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	_ = redisClient.Close()
	log.Info().Msg("Shutdown complete")
}

// buildAgent wires the data clients, extraction chain, synthesizer, and
// side effects into the query pipeline.
func buildAgent(cfg *config.Config, redisClient *redis.Client) *agent.Agent {
	cache := market.NewCache(redisClient)

	coingecko := market.NewCoinGeckoClient(
		cfg.Providers.CoinGecko.BaseURL,
		cfg.Providers.CoinGecko.APIKey,
		httpclient.New(httpclient.Options{
			Name:              "coingecko",
			Timeout:           cfg.Providers.CoinGecko.Timeout(),
			RequestsPerMinute: cfg.Providers.CoinGecko.RequestsPerMinute,
		}),
		cache,
		config.NewLogger("coingecko"),
	)
	alphavantage := market.NewAlphaVantageClient(
		cfg.Providers.AlphaVantage.BaseURL,
		cfg.Providers.AlphaVantage.APIKey,
		httpclient.New(httpclient.Options{
			Name:              "alphavantage",
			Timeout:           cfg.Providers.AlphaVantage.Timeout(),
			RequestsPerMinute: cfg.Providers.AlphaVantage.RequestsPerMinute,
		}),
		cache,
		config.NewLogger("alphavantage"),
	)
	newsFetcher := news.NewFetcher(
		cfg.Providers.CryptoPanic.BaseURL,
		cfg.Providers.CryptoPanic.APIKey,
		cfg.Providers.NewsAPI.BaseURL,
		cfg.Providers.NewsAPI.APIKey,
		httpclient.New(httpclient.Options{
			Name:              "news",
			Timeout:           cfg.Providers.CryptoPanic.Timeout(),
			RequestsPerMinute: cfg.Providers.CryptoPanic.RequestsPerMinute,
		}),
		cache,
		config.NewLogger("news"),
	)

	llmClient := llm.NewClient(llm.ClientConfig{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	analyzer := llm.NewAnalyzer(llmClient, cfg.LLM.SynthesisTimeout(), cfg.LLM.Temperature, config.NewLogger("analyzer"))

	// The LLM coin extractor is the last-resort resolution strategy; it
	// only runs when the static strategies all miss. Extractions the
	// alias table does not know resolve through CoinGecko search.
	var coinExtractor assets.CoinExtractor
	if cfg.LLM.APIKey != "" {
		coinExtractor = llm.NewExtractor(llmClient, cfg.LLM.ExtractionTimeout(), config.NewLogger("extractor"))
	}
	resolver := assets.NewResolver(coinExtractor, coingecko, config.NewLogger("resolver"))
	extractor := extract.New(resolver, config.NewLogger("extract"))

	notifiers := []notify.Notifier{notify.LogNotifier{}}
	if cfg.Notifications.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notifications.WebhookURL, cfg.Notifications.WebhookToken))
	}
	manager := notify.NewManager(
		cfg.Notifications.Enabled,
		cfg.Notifications.ImpactThreshold,
		cfg.Notifications.Cooldown(),
		notifiers...,
	)

	sessions := session.NewStore(redisClient, config.NewLogger("session"))

	return agent.New(
		extractor,
		coingecko,
		alphavantage,
		newsFetcher,
		analyzer,
		sessions,
		manager,
		config.NewLogger("agent"),
	)
}

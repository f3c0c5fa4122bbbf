// Package server exposes the HTTP side surface: health, the agent
// manifest, and Prometheus metrics. The MCP transport lives elsewhere;
// this server is for operators and discovery.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lexmanthefirst/marketmind/internal/assets"
)

// Server is the operational HTTP server.
type Server struct {
	router *gin.Engine
	redis  *redis.Client
	addr   string
	server *http.Server
}

// New creates the server. redisClient may be nil; health then reports
// redis as disabled.
func New(addr string, redisClient *redis.Client) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	s := &Server{
		router: router,
		redis:  redisClient,
		addr:   addr,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/agent.json", s.handleManifest)
	s.router.GET("/.well-known/agent.json", s.handleManifest)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleHealth(c *gin.Context) {
	deps := gin.H{}
	status := http.StatusOK

	if s.redis == nil {
		deps["redis"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			deps["redis"] = fmt.Sprintf("error: %v", err)
			status = http.StatusServiceUnavailable
		} else {
			deps["redis"] = "ok"
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": deps})
}

func (s *Server) handleManifest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Market Intelligence Agent",
		"version":     "1.0.0",
		"description": "Real-time market analysis agent for cryptocurrencies and forex pairs. Provides price tracking, technical analysis, news aggregation, and AI-powered market insights.",
		"capabilities": []string{
			"Real-time cryptocurrency price tracking (CoinGecko)",
			"Forex pair analysis and exchange rates (AlphaVantage)",
			"Technical indicators (trend, SMA, volatility, RSI)",
			"News aggregation from multiple sources",
			"AI-powered market analysis and insights",
			"Redis caching for performance (60s prices, 300s news)",
		},
		"tools": []gin.H{
			{"name": "analyze_market", "description": "Analyze a cryptocurrency or forex pair from a natural-language query"},
			{"name": "market_summary", "description": "Broad market overview with performers, trending, and forex majors"},
		},
		"features": gin.H{
			"supported_coins": len(assets.SupportedCoins()),
			"supported_assets": []string{
				"Cryptocurrencies (BTC, ETH, SOL, etc.)",
				"Forex pairs (EUR/USD, GBP/USD, etc.)",
			},
			"caching": gin.H{
				"price_data":  "60 seconds",
				"news_data":   "300 seconds",
				"forex_rates": "60 seconds",
			},
		},
	})
}

// Start runs the server until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

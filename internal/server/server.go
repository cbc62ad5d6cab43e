// Package server exposes the matching pipeline over a small REST API.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradescan/marketscout/internal/market"
	"github.com/tradescan/marketscout/internal/match"
)

// Server handles HTTP requests against the matcher.
type Server struct {
	matcher          *match.Matcher
	maxPromptMarkets int
	checks           []Check
	engine           *gin.Engine
}

// New constructs a server with registered routes. Checks back the
// /readyz readiness probe; none means always ready.
func New(matcher *match.Matcher, maxPromptMarkets int, checks ...Check) *Server {
	s := &Server{
		matcher:          matcher,
		maxPromptMarkets: maxPromptMarkets,
		checks:           checks,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)
	r.GET("/stats", s.handleStats)
	r.POST("/match", s.handleMatch)
	s.engine = r
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.matcher.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MatchRequest is a news item to rank markets against.
type MatchRequest struct {
	Title  string `json:"title" binding:"required"`
	Body   string `json:"body"`
	Source string `json:"source"`
}

// MatchResponse carries ranked matches plus the rendered digest.
type MatchResponse struct {
	NewsID  string         `json:"news_id"`
	Matches []market.Match `json:"matches"`
	Prompt  string         `json:"prompt"`
}

func (s *Server) handleMatch(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := market.NewsItem{
		ID:          uuid.NewString(),
		Source:      req.Source,
		Title:       req.Title,
		Body:        req.Body,
		PublishedAt: time.Now(),
	}

	matches, err := s.matcher.Match(c.Request.Context(), item)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		NewsID:  item.ID,
		Matches: matches,
		Prompt:  match.FormatPrompt(matches, s.maxPromptMarkets),
	})
}

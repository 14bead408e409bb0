package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/seoforge/seoforge/pkg/content"
	"github.com/seoforge/seoforge/pkg/health"
	"github.com/seoforge/seoforge/pkg/serp"
)

func (s *Server) handleAnalyzeKeyword(c *gin.Context) {
	keyword := c.Query("keyword")
	location := c.DefaultQuery("location", "us")

	num := 0
	if raw := c.Query("num"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "num must be an integer between 1 and 100"})
			return
		}
		num = parsed
	}

	opts := serp.AnalyzeOptions{
		Num:       num,
		SkipCache: c.Query("fresh") == "true",
	}
	if raw := c.Query("exclude_domains"); raw != "" {
		opts.ExcludeDomains = strings.Split(raw, ",")
	}

	result, err := s.deps.Orchestrator.AnalyzeKeyword(c.Request.Context(), keyword, location, opts)
	if err != nil {
		s.renderSERPError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"keyword":  keyword,
		"location": serp.NormalizeLocation(location).Code,
		"result":   result,
	})
}

func (s *Server) handleCompareRegions(c *gin.Context) {
	keyword := c.Query("keyword")
	raw := c.Query("locations")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locations is required, e.g. locations=us,uk,de"})
		return
	}

	results, err := s.deps.Orchestrator.CompareRegionalResults(c.Request.Context(), keyword, strings.Split(raw, ","))
	if err != nil {
		s.renderSERPError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"keyword": keyword,
		"regions": results,
	})
}

func (s *Server) renderSERPError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, serp.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, serp.ErrNoHealthyProviders):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "all search providers are unavailable"})
	case c.Request.Context().Err() != nil:
		// Client went away; status is cosmetic at this point.
		c.Status(http.StatusRequestTimeout)
	default:
		s.deps.Logger.Error("keyword analysis failed", map[string]interface{}{
			"error":      err.Error(),
			"request_id": c.GetString("request_id"),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) handleGenerateContent(c *gin.Context) {
	if s.deps.Generator == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "content generation is not enabled"})
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	resp, err := s.deps.Generator.Generate(c.Request.Context(), req.Prompt)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, content.ErrInvalidPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, content.ErrGenerationUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "content generation temporarily unavailable"})
	default:
		s.deps.Logger.Error("content generation failed", map[string]interface{}{
			"error":      err.Error(),
			"request_id": c.GetString("request_id"),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "completion backend error"})
	}
}

type competitorAnalysisRequest struct {
	Keyword  string          `json:"keyword" binding:"required"`
	Location string          `json:"location"`
	Analysis json.RawMessage `json:"analysis" binding:"required"`
}

// Competitor analyses and scraped pages are produced by external pipelines;
// these endpoints only park the artifacts in their cache categories.
func (s *Server) handleStoreCompetitorAnalysis(c *gin.Context) {
	var req competitorAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword and analysis are required"})
		return
	}
	location := serp.NormalizeLocation(req.Location).Code

	s.deps.Facade.SetCompetitorAnalysis(c.Request.Context(), req.Keyword, location, req.Analysis)
	c.JSON(http.StatusOK, gin.H{"keyword": req.Keyword, "location": location})
}

func (s *Server) handleGetCompetitorAnalysis(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}
	location := serp.NormalizeLocation(c.Query("location")).Code

	var analysis json.RawMessage
	if !s.deps.Facade.GetCompetitorAnalysis(c.Request.Context(), keyword, location, &analysis) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached analysis for this keyword"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keyword": keyword, "location": location, "analysis": analysis})
}

type scrapedContentRequest struct {
	URL     string          `json:"url" binding:"required"`
	Content json.RawMessage `json:"content" binding:"required"`
}

func (s *Server) handleStoreScrapedContent(c *gin.Context) {
	var req scrapedContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and content are required"})
		return
	}

	s.deps.Facade.SetScrapedContent(c.Request.Context(), req.URL, req.Content)
	c.JSON(http.StatusOK, gin.H{"url": req.URL})
}

func (s *Server) handleGetScrapedContent(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	var content json.RawMessage
	if !s.deps.Facade.GetScrapedContent(c.Request.Context(), url, &content) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached content for this url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "content": content})
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":          s.deps.Store.Stats().Snapshot(),
		"redisConnected": s.deps.Store.IsConnected(),
		"usingFallback":  s.deps.Store.UsingFallback(),
	})
}

func (s *Server) handleCacheStatsReset(c *gin.Context) {
	s.deps.Store.Stats().Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) handleInvalidateKeyword(c *gin.Context) {
	keyword := c.Param("keyword")
	if strings.TrimSpace(keyword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	s.deps.Facade.InvalidateKeyword(c.Request.Context(), keyword)
	c.JSON(http.StatusOK, gin.H{"invalidated": keyword})
}

type rateLimitResetRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
}

func (s *Server) handleRateLimitReset(c *gin.Context) {
	var req rateLimitResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and endpoint are required"})
		return
	}

	s.deps.Limiter.Reset(c.Request.Context(), req.UserID, req.Endpoint)
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) handleHealth(c *gin.Context) {
	report := s.deps.Reporter.GetHealth()

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadiness(c *gin.Context) {
	// A degraded store gets its reconnect attempt here: readiness probes
	// arrive on a steady schedule, so recovery does not ride the request
	// hot path and a dead Redis is re-tried at most once per probe.
	if !s.deps.Store.IsConnected() {
		s.deps.Store.Reconnect(c.Request.Context())
	}

	// Ready as long as a cache tier is serving; fallback-only still counts.
	report := s.deps.Reporter.GetHealth()
	if report.Status == health.StatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

package handler

import (
	"net/http"
	"time"

	"github.com/edirooss/headend-server/internal/analysis"
	"github.com/edirooss/headend-server/internal/repo"
	"github.com/edirooss/headend-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalysisHandler serves per-channel stream analysis and the cross-channel
// bitrate summary.
type AnalysisHandler struct {
	log     *zap.Logger
	cache   *analysis.Cache
	summary *service.AnalysisSummary
	dir     service.ChannelDirectory
}

func NewAnalysisHandler(log *zap.Logger, cache *analysis.Cache, summary *service.AnalysisSummary, dir service.ChannelDirectory) *AnalysisHandler {
	return &AnalysisHandler{
		log:     log.Named("analysis_handler"),
		cache:   cache,
		summary: summary,
		dir:     dir,
	}
}

// GetChannelAnalysis handles GET /api/channels/:id/analysis.
//
// An unavailable feed is not an HTTP error: the sample itself carries
// available=false and the reason, and is served 200 like any other.
func (h *AnalysisHandler) GetChannelAnalysis(c *gin.Context) {
	id := channelID(c)
	ok, err := h.dir.HasID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeError(c, repo.ErrChannelNotFound)
		return
	}

	c.JSON(http.StatusOK, h.cache.Get(c.Request.Context(), id))
}

// Summary handles GET /api/analysis/summary.
func (h *AnalysisHandler) Summary(c *gin.Context) {
	res, err := h.summary.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if res.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Header("X-Summary-Generated-At", res.GeneratedAt.UTC().Format(time.RFC3339Nano))
	c.JSON(http.StatusOK, res.Data)
}

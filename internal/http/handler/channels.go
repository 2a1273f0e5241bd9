package handler

import (
	"net/http"
	"strconv"

	"github.com/edirooss/headend-server/internal/repo"
	"github.com/edirooss/headend-server/internal/service"
	"github.com/edirooss/headend-server/internal/systemd"
	"github.com/edirooss/headend-server/internal/unit"
	"github.com/edirooss/headend-server/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChannelsHandler serves per-channel service probe/control, bulk control,
// whole-head-end status and unit logs.
type ChannelsHandler struct {
	log      *zap.Logger
	ctrl     *systemd.Controller
	orch     *service.Orchestrator
	dir      service.ChannelDirectory
	resolver *unit.Resolver
	journal  *systemd.JournalReader
}

func NewChannelsHandler(log *zap.Logger, ctrl *systemd.Controller, orch *service.Orchestrator, dir service.ChannelDirectory, resolver *unit.Resolver, journal *systemd.JournalReader) *ChannelsHandler {
	return &ChannelsHandler{
		log:      log.Named("channels_handler"),
		ctrl:     ctrl,
		orch:     orch,
		dir:      dir,
		resolver: resolver,
		journal:  journal,
	}
}

// channelID reads the validated ":id" path param.
func channelID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

// requireChannel resolves the path channel against the known set; writes 404
// and returns false when it is missing.
func (h *ChannelsHandler) requireChannel(c *gin.Context) (int64, bool) {
	id := channelID(c)
	ok, err := h.dir.HasID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return 0, false
	}
	if !ok {
		writeError(c, repo.ErrChannelNotFound)
		return 0, false
	}
	return id, true
}

// GetServiceState handles GET /api/channels/:id/services/:kind.
func (h *ChannelsHandler) GetServiceState(c *gin.Context) {
	id, ok := h.requireChannel(c)
	if !ok {
		return
	}
	kind, err := unit.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}

	st, err := h.ctrl.Probe(c.Request.Context(), id, kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ControlService handles POST /api/channels/:id/services/:kind/:action.
func (h *ChannelsHandler) ControlService(c *gin.Context) {
	id, ok := h.requireChannel(c)
	if !ok {
		return
	}
	kind, err := unit.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	action, err := unit.ParseAction(c.Param("action"))
	if err != nil {
		writeError(c, err)
		return
	}

	st, err := h.ctrl.Control(c.Request.Context(), id, kind, action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// BulkControl handles POST /api/services/:kind/bulk.
//
// Partial failure is not an HTTP error: the report always comes back 200 with
// per-channel detail; AllSucceeded tells the caller whether everything passed.
func (h *ChannelsHandler) BulkControl(c *gin.Context) {
	kind, err := unit.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req struct {
		Action     string  `json:"action"`
		ChannelIDs []int64 `json:"channelIds"`
	}
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	action, err := unit.ParseAction(req.Action)
	if err != nil {
		writeError(c, err)
		return
	}

	report, err := h.orch.BulkControl(c.Request.Context(), kind, action, req.ChannelIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// StatusAll handles GET /api/channels/status.
func (h *ChannelsHandler) StatusAll(c *gin.Context) {
	statuses, err := h.orch.StatusAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// GetServiceLogs handles GET /api/channels/:id/services/:kind/logs.
func (h *ChannelsHandler) GetServiceLogs(c *gin.Context) {
	id, ok := h.requireChannel(c)
	if !ok {
		return
	}
	kind, err := unit.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	unitName, err := h.resolver.Resolve(id, kind)
	if err != nil {
		writeError(c, err)
		return
	}

	q := systemd.LogQuery{
		Since:    c.Query("since"),
		Priority: c.Query("priority"),
	}
	if lines := c.Query("lines"); lines != "" {
		n, err := strconv.Atoi(lines)
		if err != nil || n <= 0 || n > 5000 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid lines"})
			return
		}
		q.Lines = n
	}

	entries, err := h.journal.Tail(c.Request.Context(), unitName, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unit": unitName, "entries": entries})
}

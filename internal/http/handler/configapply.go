package handler

import (
	"net/http"

	"github.com/edirooss/headend-server/internal/channelcfg"
	"github.com/edirooss/headend-server/internal/repo"
	"github.com/edirooss/headend-server/internal/unit"
	"github.com/edirooss/headend-server/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConfigHandler serves channel configuration reads and the apply transaction.
type ConfigHandler struct {
	log     *zap.Logger
	store   *repo.ChannelRepository
	applier *channelcfg.Applier
}

func NewConfigHandler(log *zap.Logger, store *repo.ChannelRepository, applier *channelcfg.Applier) *ConfigHandler {
	return &ConfigHandler{
		log:     log.Named("config_handler"),
		store:   store,
		applier: applier,
	}
}

// GetConfig handles GET /api/channels/:id/config.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	cfg, err := h.store.Get(c.Request.Context(), channelID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ApplyConfig handles PUT /api/channels/:id/config.
//
// Body: {"config": <ChannelConfig>, "restart": ["ingest", ...]}.
// Validation failures come back 422 with every violation; a restart failure
// comes back 502 naming the kind the sequence stopped at.
func (h *ConfigHandler) ApplyConfig(c *gin.Context) {
	var req struct {
		Config  channelcfg.ChannelConfig `json:"config"`
		Restart []string                 `json:"restart"`
	}
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	restart := make([]unit.Kind, 0, len(req.Restart))
	for _, raw := range req.Restart {
		kind, err := unit.ParseKind(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		restart = append(restart, kind)
	}

	id := channelID(c)
	if err := h.applier.Apply(c.Request.Context(), id, &req.Config, restart); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channelId": id, "restarted": restart})
}

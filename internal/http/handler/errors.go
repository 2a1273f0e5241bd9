// Package handler exposes the controller core over gin.
package handler

import (
	"errors"
	"net/http"

	"github.com/edirooss/headend-server/internal/channelcfg"
	"github.com/edirooss/headend-server/internal/repo"
	"github.com/edirooss/headend-server/internal/service"
	"github.com/edirooss/headend-server/internal/systemd"
	"github.com/edirooss/headend-server/internal/unit"
	"github.com/gin-gonic/gin"
)

// writeError maps core errors onto HTTP status codes:
// caller errors 400, unknown channel 404, validation 422, supervisor or
// analyzer failure 502, anything else 500.
func writeError(c *gin.Context, err error) {
	c.Error(err)

	var ve *channelcfg.ValidationError
	var pce *systemd.ProcessControlError
	switch {
	case errors.Is(err, unit.ErrUnknownServiceKind),
		errors.Is(err, unit.ErrInvalidAction),
		errors.Is(err, service.ErrNoValidTargets):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, repo.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": ve.Error(), "problems": ve.Problems})
	case errors.As(err, &pce):
		c.JSON(http.StatusBadGateway, gin.H{"message": pce.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/ReactEA/internal/application/evolution"
)

// StatusProvider reports the progress of the current run.
type StatusProvider interface {
	Status() evolution.Status
}

type StatusHandler struct {
	provider StatusProvider
}

func NewStatusHandler(p StatusProvider) *StatusHandler {
	return &StatusHandler{provider: p}
}

// Get handles GET /status.
func (h *StatusHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.provider.Status())
}

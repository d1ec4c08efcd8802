package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/interfaces/http/middleware"
)

// SystemHandler serves AI system registration.
type SystemHandler struct {
	svc    certification.Service
	logger logging.Logger
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(svc certification.Service, logger logging.Logger) *SystemHandler {
	return &SystemHandler{svc: svc, logger: logger}
}

// Register mounts the system routes on rg.
func (h *SystemHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/systems", h.Create)
	rg.GET("/systems/:id", h.Get)
}

// Create handles POST /systems.
func (h *SystemHandler) Create(c *gin.Context) {
	var req certification.RegisterAISystemRequest
	if !bindJSON(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)

	sys, err := h.svc.RegisterAISystem(c.Request.Context(), &req)
	if err != nil {
		logFailure(h.logger, c, "register AI system failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sys)
}

// Get handles GET /systems/:id.
func (h *SystemHandler) Get(c *gin.Context) {
	sys, err := h.svc.GetAISystem(c.Request.Context(), c.Param("id"))
	if err != nil {
		logFailure(h.logger, c, "get AI system failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sys)
}

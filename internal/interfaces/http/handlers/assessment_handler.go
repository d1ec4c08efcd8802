package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/interfaces/http/middleware"
)

// AssessmentHandler serves risk classification and maturity scoring.
type AssessmentHandler struct {
	svc    certification.Service
	logger logging.Logger
}

// NewAssessmentHandler creates an AssessmentHandler.
func NewAssessmentHandler(svc certification.Service, logger logging.Logger) *AssessmentHandler {
	return &AssessmentHandler{svc: svc, logger: logger}
}

// Register mounts the assessment routes on rg.
func (h *AssessmentHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/risk-assessments", h.ClassifyRisk)
	rg.POST("/maturity-assessments", h.ScoreMaturity)
	rg.GET("/frameworks", h.GetFramework)
	rg.GET("/frameworks/:id", h.GetFramework)
	rg.GET("/scoring-table", h.GetScoringTable)
}

// ClassifyRisk handles POST /risk-assessments.
func (h *AssessmentHandler) ClassifyRisk(c *gin.Context) {
	var req certification.ClassifyRiskRequest
	if !bindJSON(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)

	dto, err := h.svc.ClassifyRisk(c.Request.Context(), &req)
	if err != nil {
		logFailure(h.logger, c, "risk classification failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

// ScoreMaturity handles POST /maturity-assessments.
func (h *AssessmentHandler) ScoreMaturity(c *gin.Context) {
	var req certification.ScoreMaturityRequest
	if !bindJSON(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)

	dto, err := h.svc.ScoreMaturity(c.Request.Context(), &req)
	if err != nil {
		logFailure(h.logger, c, "maturity scoring failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

// GetFramework handles GET /frameworks and GET /frameworks/:id. Without an
// id the default framework is returned.
func (h *AssessmentHandler) GetFramework(c *gin.Context) {
	fw, err := h.svc.GetFramework(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fw)
}

// GetScoringTable handles GET /scoring-table.
func (h *AssessmentHandler) GetScoringTable(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ScoringTable())
}

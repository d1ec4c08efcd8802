package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/interfaces/http/middleware"
)

// CertificateHandler serves issuance, lookup, verification and the public
// registry.
type CertificateHandler struct {
	svc    certification.Service
	logger logging.Logger
	now    func() time.Time
}

// NewCertificateHandler creates a CertificateHandler.
func NewCertificateHandler(svc certification.Service, logger logging.Logger) *CertificateHandler {
	return &CertificateHandler{svc: svc, logger: logger, now: time.Now}
}

// Register mounts the certificate routes on rg.
func (h *CertificateHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/certificates", h.Issue)
	rg.GET("/certificates", h.Search)
	rg.POST("/certificates/verify", h.VerifyDocument)
	rg.GET("/certificates/:number", h.Get)
	rg.GET("/certificates/:number/verify", h.Verify)
}

// Issue handles POST /certificates.
func (h *CertificateHandler) Issue(c *gin.Context) {
	var req certification.IssueCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)
	req.CertificateType = certificate.CertificateType(strings.ToLower(string(req.CertificateType)))

	rec, err := h.svc.IssueCertificate(c.Request.Context(), &req)
	if err != nil {
		logFailure(h.logger, c, "certificate issuance failed", err)
		writeError(c, err)
		return
	}
	c.Header("Location", "/api/v1/certificates/"+rec.CertificateNumber)
	c.JSON(http.StatusCreated, rec)
}

// Get handles GET /certificates/:number.
func (h *CertificateHandler) Get(c *gin.Context) {
	rec, err := h.svc.GetCertificate(c.Request.Context(), c.Param("number"))
	if err != nil {
		logFailure(h.logger, c, "get certificate failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Verify handles GET /certificates/:number/verify. A tampered certificate is
// still a 200 with valid=false.
func (h *CertificateHandler) Verify(c *gin.Context) {
	dto, err := h.svc.VerifyCertificate(c.Request.Context(), c.Param("number"))
	if err != nil {
		logFailure(h.logger, c, "verify certificate failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// VerifyDocument handles POST /certificates/verify: the body is a full
// certificate document checked without a store lookup.
func (h *CertificateHandler) VerifyDocument(c *gin.Context) {
	var rec certificate.CertificateRecord
	if !bindJSON(c, &rec) {
		return
	}
	c.JSON(http.StatusOK, &certification.VerificationDTO{
		VerificationReport: certificate.Inspect(&rec, h.now()),
		OrganizationName:   rec.OrganizationName,
		SystemName:         rec.SystemName,
		CertificateType:    rec.CertificateType,
		IssuedAt:           rec.IssuedAt,
		OverallStatus:      rec.ComplianceDetails.OverallStatus,
		ComplianceScore:    rec.ComplianceScore,
	})
}

// Search handles GET /certificates?org=&q=&status=&limit=&offset=.
func (h *CertificateHandler) Search(c *gin.Context) {
	limit, offset := parsePagination(c)
	page, err := h.svc.SearchCertificates(c.Request.Context(), certificate.RegistryQuery{
		OrganizationName: c.Query("org"),
		Text:             c.Query("q"),
		Status:           certificate.OverallStatus(c.Query("status")),
		Limit:            limit,
		Offset:           offset,
	})
	if err != nil {
		logFailure(h.logger, c, "certificate search failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/karooma/backend/internal/domain"
	"github.com/karooma/backend/internal/scheduler"
	"github.com/karooma/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service *usecase.CurationService
	kits    domain.KitRepository
}

// NewHandler creates a new HTTP handler
func NewHandler(service *usecase.CurationService, kits domain.KitRepository) *Handler {
	return &Handler{
		service: service,
		kits:    kits,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "karooma-kit-engine",
		"version": "1.0.0",
	})
}

// ImportKit accepts a pasted-in JSON kit definition and stores it.
// Malformed rule sets are rejected here rather than at curation time.
func (h *Handler) ImportKit(c *gin.Context) {
	var payload domain.KitImport
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kit JSON: " + err.Error()})
		return
	}

	kit, err := h.service.ImportKit(c.Request.Context(), payload)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidRuleSet) ||
			errors.Is(err, domain.ErrInvalidConceptItem) ||
			errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, kit)
}

// GetKit returns a kit with its products and next scheduled refresh.
func (h *Handler) GetKit(c *gin.Context) {
	kit, err := h.kits.GetKit(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrKitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "kit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"kit": kit}
	if next, ok := scheduler.NextRefresh(*kit); ok {
		resp["nextRefreshAt"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// ListKits returns all kits (without product lists)
func (h *Handler) ListKits(c *gin.Context) {
	kits, err := h.kits.ListKits(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kits": kits, "count": len(kits)})
}

// CurateKit runs an on-demand curation cycle ("re-curate now").
func (h *Handler) CurateKit(c *gin.Context) {
	report, err := h.service.CurateKit(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrKitNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "kit not found"})
		case errors.Is(err, domain.ErrPersistence):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

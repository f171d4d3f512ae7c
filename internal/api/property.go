package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/middleware"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
)

type PropertyHandler struct {
	properties repository.PropertyRepository
	units      repository.UnitRepository
	leases     repository.LeaseRepository
	logger     *zap.Logger
}

func NewPropertyHandler(properties repository.PropertyRepository, units repository.UnitRepository, leases repository.LeaseRepository, logger *zap.Logger) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		units:      units,
		leases:     leases,
		logger:     logger,
	}
}

type createPropertyRequest struct {
	Name         string `json:"name" binding:"required"`
	PropertyType string `json:"property_type"`
	Address      string `json:"address" binding:"required"`
	City         string `json:"city"`
	Country      string `json:"country"`
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// Create handles POST /v1/properties. Restricted to landlord/manager by the
// route's role gate; the caller becomes the owner.
func (h *PropertyHandler) Create(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident := middleware.GetIdentity(c)
	p, err := h.properties.Create(c.Request.Context(), ident.UserID, repository.NewProperty{
		Name:         req.Name,
		PropertyType: req.PropertyType,
		Address:      req.Address,
		City:         req.City,
		Country:      req.Country,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// List handles GET /v1/properties.
func (h *PropertyHandler) List(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	properties, err := h.properties.List(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, properties)
}

// GetByID handles GET /v1/properties/:id.
func (h *PropertyHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	p, err := h.properties.GetByID(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// Units handles GET /v1/properties/:id/units.
func (h *PropertyHandler) Units(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	units, err := h.units.ListByProperty(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, units)
}

// Tenants handles GET /v1/properties/:id/tenants, the active tenancies of
// one property.
func (h *PropertyHandler) Tenants(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	tenancies, err := h.leases.ActiveByProperty(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tenancies)
}

// Summary handles GET /v1/properties/:id/summary.
func (h *PropertyHandler) Summary(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	sum, err := h.properties.Summary(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if sum == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	c.JSON(http.StatusOK, sum)
}

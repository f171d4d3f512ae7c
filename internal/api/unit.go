package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/middleware"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
)

type UnitHandler struct {
	units      repository.UnitRepository
	properties repository.PropertyRepository
	logger     *zap.Logger
}

func NewUnitHandler(units repository.UnitRepository, properties repository.PropertyRepository, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{
		units:      units,
		properties: properties,
		logger:     logger,
	}
}

type createUnitRequest struct {
	PropertyID int64  `json:"property_id" binding:"required"`
	UnitNumber string `json:"unit_number" binding:"required"`
	Bedrooms   int    `json:"bedrooms"`
	Bathrooms  int    `json:"bathrooms"`
	RentAmount int64  `json:"rent_amount" binding:"required,gt=0"`
}

// Create handles POST /v1/units. The scoped property lookup doubles as the
// ownership check: a property the caller does not own reads as absent.
func (h *UnitHandler) Create(c *gin.Context) {
	var req createUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident := middleware.GetIdentity(c)
	property, err := h.properties.GetByID(c.Request.Context(), ident, req.PropertyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	unit, err := h.units.Create(c.Request.Context(), repository.NewUnit{
		PropertyID: req.PropertyID,
		UnitNumber: req.UnitNumber,
		Bedrooms:   req.Bedrooms,
		Bathrooms:  req.Bathrooms,
		RentAmount: req.RentAmount,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, unit)
}

// GetByID handles GET /v1/units/:id.
func (h *UnitHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	unit, err := h.units.GetByID(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if unit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
		return
	}

	c.JSON(http.StatusOK, unit)
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/middleware"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
)

const dateLayout = "2006-01-02"

type LeaseHandler struct {
	leases repository.LeaseRepository
	units  repository.UnitRepository
	users  repository.UserRepository
	logger *zap.Logger
}

func NewLeaseHandler(leases repository.LeaseRepository, units repository.UnitRepository, users repository.UserRepository, logger *zap.Logger) *LeaseHandler {
	return &LeaseHandler{
		leases: leases,
		units:  units,
		users:  users,
		logger: logger,
	}
}

type createLeaseRequest struct {
	UnitID     int64  `json:"unit_id" binding:"required"`
	TenantID   int64  `json:"tenant_id" binding:"required"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date"`
	RentAmount int64  `json:"rent_amount"`
}

// Create handles POST /v1/leases. Restricted to landlord/manager by the
// route's role gate. The unit lookup is scoped, so leasing out someone
// else's unit reads as NOT_FOUND; the active-lease check-and-set runs
// inside the store's transaction and answers CONFLICT.
func (h *LeaseHandler) Create(c *gin.Context) {
	var req createLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	var end *time.Time
	if req.EndDate != "" {
		e, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return
		}
		if e.Before(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not precede start_date"})
			return
		}
		end = &e
	}

	ident := middleware.GetIdentity(c)
	unit, err := h.units.GetByID(c.Request.Context(), ident, req.UnitID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if unit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
		return
	}

	tenant, err := h.users.GetByID(c.Request.Context(), req.TenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if tenant == nil || tenant.Role != models.RoleTenant {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id must reference a tenant account"})
		return
	}

	rent := req.RentAmount
	if rent <= 0 {
		rent = unit.RentAmount
	}

	lease, err := h.leases.Create(c.Request.Context(), repository.NewLease{
		UnitID:     req.UnitID,
		TenantID:   req.TenantID,
		StartDate:  start,
		EndDate:    end,
		RentAmount: rent,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, lease)
}

// List handles GET /v1/leases.
func (h *LeaseHandler) List(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	leases, err := h.leases.List(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, leases)
}

// GetByID handles GET /v1/leases/:id.
func (h *LeaseHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	lease, err := h.leases.GetByID(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if lease == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lease not found"})
		return
	}

	c.JSON(http.StatusOK, lease)
}

type updateLeaseStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /v1/leases/:id/status. The status write and
// the unit occupancy recomputation happen in one transaction.
func (h *LeaseHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateLeaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.LeaseStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active, expired or terminated"})
		return
	}

	ident := middleware.GetIdentity(c)
	lease, err := h.leases.GetByID(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if lease == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lease not found"})
		return
	}

	updated, err := h.leases.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lease not found"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

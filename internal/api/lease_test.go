package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/apperr"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

type unitRepoMock struct {
	repository.UnitRepository
	getFunc func(ctx context.Context, ident scope.Identity, id int64) (*models.Unit, error)
}

func (m *unitRepoMock) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Unit, error) {
	return m.getFunc(ctx, ident, id)
}

type userRepoMock struct {
	repository.UserRepository
	getFunc func(ctx context.Context, id int64) (*models.User, error)
}

func (m *userRepoMock) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.getFunc(ctx, id)
}

type leaseRepoFull struct {
	repository.LeaseRepository
	createFunc func(ctx context.Context, in repository.NewLease) (*models.Lease, error)
	getFunc    func(ctx context.Context, ident scope.Identity, id int64) (*models.Lease, error)
	updateFunc func(ctx context.Context, id int64, status models.LeaseStatus) (*models.Lease, error)
}

func (m *leaseRepoFull) Create(ctx context.Context, in repository.NewLease) (*models.Lease, error) {
	return m.createFunc(ctx, in)
}

func (m *leaseRepoFull) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Lease, error) {
	return m.getFunc(ctx, ident, id)
}

func (m *leaseRepoFull) UpdateStatus(ctx context.Context, id int64, status models.LeaseStatus) (*models.Lease, error) {
	return m.updateFunc(ctx, id, status)
}

func leaseRouter(lr repository.LeaseRepository, ur repository.UnitRepository, users repository.UserRepository, ident scope.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewLeaseHandler(lr, ur, users, zap.NewNop())

	r := gin.New()
	authed := r.Group("/v1", asIdentity(ident))
	authed.POST("/leases", h.Create)
	authed.GET("/leases/:id", h.GetByID)
	authed.PATCH("/leases/:id/status", h.UpdateStatus)
	return r
}

func patchJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var landlordIdent = scope.Identity{UserID: 10, Role: models.RoleLandlord}

func vacantUnit() *unitRepoMock {
	return &unitRepoMock{
		getFunc: func(context.Context, scope.Identity, int64) (*models.Unit, error) {
			return &models.Unit{ID: 3, PropertyID: 1, UnitNumber: "7A", RentAmount: 45000}, nil
		},
	}
}

func tenantUser() *userRepoMock {
	return &userRepoMock{
		getFunc: func(context.Context, int64) (*models.User, error) {
			return &models.User{ID: 20, Role: models.RoleTenant}, nil
		},
	}
}

func TestCreateLeaseOccupiedUnitAnswersConflict(t *testing.T) {
	lr := &leaseRepoFull{
		createFunc: func(context.Context, repository.NewLease) (*models.Lease, error) {
			return nil, apperr.Conflict("unit already has an active lease")
		},
	}
	r := leaseRouter(lr, vacantUnit(), tenantUser(), landlordIdent)

	w := postJSON(r, "/v1/leases", `{"unit_id":3,"tenant_id":20,"start_date":"2026-09-01"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}

func TestCreateLeaseUnknownUnitAnswers404(t *testing.T) {
	ur := &unitRepoMock{
		getFunc: func(context.Context, scope.Identity, int64) (*models.Unit, error) {
			return nil, nil
		},
	}
	r := leaseRouter(&leaseRepoFull{}, ur, tenantUser(), landlordIdent)

	w := postJSON(r, "/v1/leases", `{"unit_id":3,"tenant_id":20,"start_date":"2026-09-01"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateLeaseRejectsNonTenantAccount(t *testing.T) {
	users := &userRepoMock{
		getFunc: func(context.Context, int64) (*models.User, error) {
			return &models.User{ID: 11, Role: models.RolePropertyManager}, nil
		},
	}
	r := leaseRouter(&leaseRepoFull{}, vacantUnit(), users, landlordIdent)

	w := postJSON(r, "/v1/leases", `{"unit_id":3,"tenant_id":11,"start_date":"2026-09-01"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tenant")
}

func TestCreateLeaseRejectsEndBeforeStart(t *testing.T) {
	r := leaseRouter(&leaseRepoFull{}, vacantUnit(), tenantUser(), landlordIdent)

	w := postJSON(r, "/v1/leases", `{"unit_id":3,"tenant_id":20,"start_date":"2026-09-01","end_date":"2026-08-01"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLeaseDefaultsRentToUnit(t *testing.T) {
	var got repository.NewLease
	lr := &leaseRepoFull{
		createFunc: func(_ context.Context, in repository.NewLease) (*models.Lease, error) {
			got = in
			return &models.Lease{ID: 5, UnitID: in.UnitID, TenantID: in.TenantID, RentAmount: in.RentAmount, Status: models.LeaseActive}, nil
		},
	}
	r := leaseRouter(lr, vacantUnit(), tenantUser(), landlordIdent)

	w := postJSON(r, "/v1/leases", `{"unit_id":3,"tenant_id":20,"start_date":"2026-09-01"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(45000), got.RentAmount)
}

func TestUpdateLeaseStatusInvalidValue(t *testing.T) {
	r := leaseRouter(&leaseRepoFull{}, vacantUnit(), tenantUser(), landlordIdent)

	req := patchJSON(r, "/v1/leases/5/status", `{"status":"paused"}`)
	assert.Equal(t, http.StatusBadRequest, req.Code)
}

func TestUpdateLeaseStatusOutOfScopeAnswers404(t *testing.T) {
	lr := &leaseRepoFull{
		getFunc: func(context.Context, scope.Identity, int64) (*models.Lease, error) {
			return nil, nil
		},
	}
	r := leaseRouter(lr, vacantUnit(), tenantUser(), landlordIdent)

	w := patchJSON(r, "/v1/leases/5/status", `{"status":"terminated"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateLeaseStatusTerminates(t *testing.T) {
	lr := &leaseRepoFull{
		getFunc: func(context.Context, scope.Identity, int64) (*models.Lease, error) {
			return &models.Lease{ID: 5, Status: models.LeaseActive}, nil
		},
		updateFunc: func(_ context.Context, id int64, status models.LeaseStatus) (*models.Lease, error) {
			return &models.Lease{ID: id, Status: status}, nil
		},
	}
	r := leaseRouter(lr, vacantUnit(), tenantUser(), landlordIdent)

	w := patchJSON(r, "/v1/leases/5/status", `{"status":"terminated"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"terminated"`)
}

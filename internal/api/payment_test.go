package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/middleware"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/payments"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

// paymentRepoMock overrides only the methods a test exercises; an
// unexpected call panics through the embedded nil interface.
type paymentRepoMock struct {
	repository.PaymentRepository
	createFunc  func(ctx context.Context, leaseID, amount int64, method models.PaymentMethod, status models.PaymentStatus, reference string) (*models.Payment, error)
	attachFunc  func(ctx context.Context, id int64, checkoutID string) error
	failFunc    func(ctx context.Context, id int64) error
	resolveFunc func(ctx context.Context, checkoutID string, status models.PaymentStatus, receipt string) (bool, error)
	getFunc     func(ctx context.Context, ident scope.Identity, id int64) (*models.Payment, error)
}

func (m *paymentRepoMock) Create(ctx context.Context, leaseID, amount int64, method models.PaymentMethod, status models.PaymentStatus, reference string) (*models.Payment, error) {
	return m.createFunc(ctx, leaseID, amount, method, status, reference)
}

func (m *paymentRepoMock) AttachCheckout(ctx context.Context, id int64, checkoutID string) error {
	return m.attachFunc(ctx, id, checkoutID)
}

func (m *paymentRepoMock) MarkFailed(ctx context.Context, id int64) error {
	return m.failFunc(ctx, id)
}

func (m *paymentRepoMock) Resolve(ctx context.Context, checkoutID string, status models.PaymentStatus, receipt string) (bool, error) {
	return m.resolveFunc(ctx, checkoutID, status, receipt)
}

func (m *paymentRepoMock) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Payment, error) {
	return m.getFunc(ctx, ident, id)
}

type leaseRepoMock struct {
	repository.LeaseRepository
	getFunc func(ctx context.Context, ident scope.Identity, id int64) (*models.Lease, error)
}

func (m *leaseRepoMock) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Lease, error) {
	return m.getFunc(ctx, ident, id)
}

type gatewayMock struct {
	pushFunc func(ctx context.Context, phone string, amount int64, accountRef, description string) (string, error)
}

func (m *gatewayMock) STKPush(ctx context.Context, phone string, amount int64, accountRef, description string) (string, error) {
	return m.pushFunc(ctx, phone, amount, accountRef, description)
}

// asIdentity injects a verified identity without running the full JWT
// middleware.
func asIdentity(ident scope.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyIdentity, ident)
		c.Next()
	}
}

func paymentRouter(pr repository.PaymentRepository, lr repository.LeaseRepository, gw payments.Gateway, ident scope.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := payments.NewService(pr, lr, gw, zap.NewNop())
	h := NewPaymentHandler(svc, zap.NewNop())

	r := gin.New()
	r.POST("/v1/payments/mpesa/callback", h.Callback)
	authed := r.Group("/v1", asIdentity(ident))
	authed.POST("/payments/mpesa/initiate", h.Initiate)
	authed.GET("/payments/:id", h.GetByID)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCallbackAcksMalformedBody(t *testing.T) {
	// The repo mock has no resolveFunc; a call would panic, proving the
	// malformed body never reaches the ledger.
	r := paymentRouter(&paymentRepoMock{}, &leaseRepoMock{}, &gatewayMock{}, scope.Identity{})

	w := postJSON(r, "/v1/payments/mpesa/callback", `{not json`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, w.Body.String())
}

func TestCallbackResolvesPayment(t *testing.T) {
	var gotCheckout, gotReceipt string
	var gotStatus models.PaymentStatus
	pr := &paymentRepoMock{
		resolveFunc: func(_ context.Context, checkoutID string, status models.PaymentStatus, receipt string) (bool, error) {
			gotCheckout, gotStatus, gotReceipt = checkoutID, status, receipt
			return true, nil
		},
	}
	r := paymentRouter(pr, &leaseRepoMock{}, &gatewayMock{}, scope.Identity{})

	body := `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_42",
				"ResultCode": 0,
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 5000},
						{"Name": "MpesaReceiptNumber", "Value": "QAX123"}
					]
				}
			}
		}
	}`
	w := postJSON(r, "/v1/payments/mpesa/callback", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, w.Body.String())

	assert.Equal(t, "ws_CO_42", gotCheckout)
	assert.Equal(t, models.PaymentCompleted, gotStatus)
	assert.Equal(t, "QAX123", gotReceipt)
}

func TestCallbackAcksEvenWhenResolveErrors(t *testing.T) {
	pr := &paymentRepoMock{
		resolveFunc: func(context.Context, string, models.PaymentStatus, string) (bool, error) {
			return false, context.DeadlineExceeded
		},
	}
	r := paymentRouter(pr, &leaseRepoMock{}, &gatewayMock{}, scope.Identity{})

	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_42","ResultCode":1032}}}`
	w := postJSON(r, "/v1/payments/mpesa/callback", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, w.Body.String())
}

func TestInitiateRejectsBadPhone(t *testing.T) {
	tenant := scope.Identity{UserID: 20, Role: models.RoleTenant}
	r := paymentRouter(&paymentRepoMock{}, &leaseRepoMock{}, &gatewayMock{}, tenant)

	w := postJSON(r, "/v1/payments/mpesa/initiate", `{"lease_id":1,"amount":5000,"phone":"0700111222"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateGatewayFailureAnswers502(t *testing.T) {
	tenant := scope.Identity{UserID: 20, Role: models.RoleTenant}
	lr := &leaseRepoMock{
		getFunc: func(context.Context, scope.Identity, int64) (*models.Lease, error) {
			return &models.Lease{ID: 1, TenantID: 20, Status: models.LeaseActive}, nil
		},
	}
	marked := false
	pr := &paymentRepoMock{
		createFunc: func(_ context.Context, leaseID, amount int64, _ models.PaymentMethod, status models.PaymentStatus, _ string) (*models.Payment, error) {
			require.Equal(t, models.PaymentPending, status)
			return &models.Payment{ID: 9, LeaseID: leaseID, Amount: amount, Status: status}, nil
		},
		failFunc: func(_ context.Context, id int64) error {
			marked = true
			return nil
		},
	}
	gw := &gatewayMock{
		pushFunc: func(context.Context, string, int64, string, string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}
	r := paymentRouter(pr, lr, gw, tenant)

	w := postJSON(r, "/v1/payments/mpesa/initiate", `{"lease_id":1,"amount":5000,"phone":"+254700111222"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "GATEWAY_ERROR")
	assert.True(t, marked, "dispatch failure must force the row to failed")
}

func TestInitiateHappyPathResponse(t *testing.T) {
	tenant := scope.Identity{UserID: 20, Role: models.RoleTenant}
	lr := &leaseRepoMock{
		getFunc: func(context.Context, scope.Identity, int64) (*models.Lease, error) {
			return &models.Lease{ID: 1, TenantID: 20, Status: models.LeaseActive}, nil
		},
	}
	pr := &paymentRepoMock{
		createFunc: func(_ context.Context, leaseID, amount int64, method models.PaymentMethod, status models.PaymentStatus, _ string) (*models.Payment, error) {
			return &models.Payment{ID: 9, LeaseID: leaseID, Amount: amount, Method: method, Status: status}, nil
		},
		attachFunc: func(context.Context, int64, string) error { return nil },
	}
	gw := &gatewayMock{
		pushFunc: func(context.Context, string, int64, string, string) (string, error) {
			return "ws_CO_99", nil
		},
	}
	r := paymentRouter(pr, lr, gw, tenant)

	w := postJSON(r, "/v1/payments/mpesa/initiate", `{"lease_id":1,"amount":5000,"phone":"+254700111222"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"payment_id":9,"checkout_request_id":"ws_CO_99","status":"pending"}`, w.Body.String())
}

func TestGetPaymentOutOfScopeAnswers404(t *testing.T) {
	tenant := scope.Identity{UserID: 20, Role: models.RoleTenant}
	pr := &paymentRepoMock{
		getFunc: func(context.Context, scope.Identity, int64) (*models.Payment, error) {
			return nil, nil
		},
	}
	r := paymentRouter(pr, &leaseRepoMock{}, &gatewayMock{}, tenant)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/33", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

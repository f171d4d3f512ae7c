package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/middleware"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/payments"
)

type PaymentHandler struct {
	service *payments.Service
	logger  *zap.Logger
}

func NewPaymentHandler(service *payments.Service, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

type initiateRequest struct {
	LeaseID int64  `json:"lease_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
	Phone   string `json:"phone" binding:"required,e164"`
}

type initiateResponse struct {
	PaymentID         int64  `json:"payment_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Status            string `json:"status"`
}

// Initiate handles POST /v1/payments/mpesa/initiate.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident := middleware.GetIdentity(c)
	res, err := h.service.Initiate(c.Request.Context(), ident, req.LeaseID, req.Amount, req.Phone)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, initiateResponse{
		PaymentID:         res.Payment.ID,
		CheckoutRequestID: res.CheckoutRequestID,
		Status:            string(res.Payment.Status),
	})
}

// stkCallbackEnvelope is the nested JSON body the gateway posts back.
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// callbackAck is the fixed acknowledgment. The gateway retries on anything
// else, so this endpoint never reports an error outward; failures are
// visible only through the ledger's status field.
var callbackAck = gin.H{"ResultCode": 0, "ResultDesc": "Accepted"}

// Callback handles POST /v1/payments/mpesa/callback. Unauthenticated: the
// gateway cannot present our bearer tokens, so correlation by unguessable
// checkout id is the only defense and unknown ids are silently dropped.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var env stkCallbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.logger.Warn("malformed callback body", zap.Error(err))
		c.JSON(http.StatusOK, callbackAck)
		return
	}

	cb := payments.Callback{
		CheckoutID: env.Body.StkCallback.CheckoutRequestID,
		ResultCode: env.Body.StkCallback.ResultCode,
	}
	for _, item := range env.Body.StkCallback.CallbackMetadata.Item {
		cb.Items = append(cb.Items, payments.MetadataItem{Name: item.Name, Value: item.Value})
	}

	if err := h.service.HandleCallback(c.Request.Context(), cb); err != nil {
		h.logger.Error("callback processing failed",
			zap.String("checkout_request_id", cb.CheckoutID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, callbackAck)
}

// GetByID handles GET /v1/payments/:id.
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	p, err := h.service.Get(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// List handles GET /v1/payments?lease_id=.
func (h *PaymentHandler) List(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	var leaseID *int64
	if raw := c.Query("lease_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease_id"})
			return
		}
		leaseID = &id
	}

	items, err := h.service.List(c.Request.Context(), ident, leaseID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

type recordManualRequest struct {
	LeaseID   int64  `json:"lease_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Method    string `json:"method" binding:"required"`
	Reference string `json:"reference"`
}

// RecordManual handles POST /v1/payments: an operator recording an
// off-gateway payment (bank, cash, cheque). Landlord/manager only.
func (h *PaymentHandler) RecordManual(c *gin.Context) {
	var req recordManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident := middleware.GetIdentity(c)
	p, err := h.service.RecordManual(c.Request.Context(), ident, req.LeaseID, req.Amount, models.PaymentMethod(req.Method), req.Reference)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// Cancel handles POST /v1/payments/:id/cancel. Landlord/manager only;
// pending rows only.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	p, err := h.service.Cancel(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

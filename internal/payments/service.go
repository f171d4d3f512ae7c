// Package payments owns the rent-payment ledger and its lifecycle:
// pending → completed | failed (gateway callback), pending → failed
// (dispatch error), pending → cancelled (manual operator action).
// Terminal states are absorbing.
package payments

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/apperr"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/observ"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

// receiptItemName is the metadata item carrying the settlement reference in
// a successful callback.
const receiptItemName = "MpesaReceiptNumber"

// Gateway is the outbound push-payment collaborator. The concrete
// implementation lives in internal/mpesa.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amount int64, accountRef, description string) (checkoutID string, err error)
}

// MetadataItem is one name/value pair from a callback's metadata list.
type MetadataItem struct {
	Name  string
	Value any
}

// Callback is the decoded asynchronous gateway result.
type Callback struct {
	CheckoutID string
	ResultCode int
	Items      []MetadataItem
}

type Service struct {
	payments repository.PaymentRepository
	leases   repository.LeaseRepository
	gateway  Gateway
	logger   *zap.Logger
}

func NewService(payments repository.PaymentRepository, leases repository.LeaseRepository, gateway Gateway, logger *zap.Logger) *Service {
	return &Service{
		payments: payments,
		leases:   leases,
		gateway:  gateway,
		logger:   logger,
	}
}

// InitiateResult is returned to the caller of a successful initiation.
type InitiateResult struct {
	Payment           *models.Payment
	CheckoutRequestID string
}

// Initiate starts an STK-push collection against a lease.
//
// The pending ledger row is persisted before the outbound call so a crash
// or timeout mid-dispatch still leaves a traceable record. If the dispatch
// itself fails the row is forced to failed and a GATEWAY_ERROR surfaces to
// the caller; the row is kept, not rolled back.
func (s *Service) Initiate(ctx context.Context, ident scope.Identity, leaseID, amount int64, phone string) (*InitiateResult, error) {
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	if phone == "" {
		return nil, apperr.Validation("phone is required")
	}

	lease, err := s.leases.GetByID(ctx, ident, leaseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if lease == nil {
		return nil, apperr.NotFound("lease not found")
	}
	// The scoped lookup already excludes other tenants' leases, but the
	// ownership rule for initiation is stricter than visibility: a tenant
	// may only pay their own lease.
	if ident.Role == models.RoleTenant && lease.TenantID != ident.UserID {
		return nil, apperr.Forbidden("not your lease")
	}

	payment, err := s.payments.Create(ctx, leaseID, amount, models.MethodMpesa, models.PaymentPending, "")
	if err != nil {
		return nil, apperr.Internal(err)
	}

	accountRef := fmt.Sprintf("LEASE%d", leaseID)
	checkoutID, err := s.gateway.STKPush(ctx, phone, amount, accountRef, "Rent")
	if err != nil {
		observ.PaymentsInitiated.WithLabelValues("gateway_error").Inc()
		s.logger.Error("stk push failed",
			zap.Int64("payment_id", payment.ID),
			zap.Int64("lease_id", leaseID),
			zap.Error(err),
		)
		if mErr := s.payments.MarkFailed(ctx, payment.ID); mErr != nil {
			s.logger.Error("failed to mark payment failed",
				zap.Int64("payment_id", payment.ID),
				zap.Error(mErr),
			)
		}
		return nil, apperr.Gateway("payment provider request failed", err)
	}

	if err := s.payments.AttachCheckout(ctx, payment.ID, checkoutID); err != nil {
		// The push went out; losing the correlation key would strand the
		// row in pending forever, so surface the failure.
		return nil, apperr.Internal(err)
	}

	observ.PaymentsInitiated.WithLabelValues("dispatched").Inc()
	s.logger.Info("payment initiated",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("lease_id", leaseID),
		zap.String("checkout_request_id", checkoutID),
	)

	payment.CheckoutID = checkoutID
	return &InitiateResult{Payment: payment, CheckoutRequestID: checkoutID}, nil
}

// HandleCallback applies an asynchronous gateway result to the ledger.
//
// Correlation is purely by checkout id. Unknown ids (including a callback
// racing ahead of the initiation's own checkout-id write) and ids already
// in a terminal state are dropped; the gateway's retry policy redelivers
// the former, and the latter is the idempotency guarantee. The returned
// error is for logging only; the HTTP layer always acknowledges.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) error {
	if cb.CheckoutID == "" {
		return nil
	}

	status := models.PaymentFailed
	receipt := ""
	if cb.ResultCode == 0 {
		status = models.PaymentCompleted
		receipt = receiptValue(cb.Items)
	}

	updated, err := s.payments.Resolve(ctx, cb.CheckoutID, status, receipt)
	if err != nil {
		return fmt.Errorf("resolve callback: %w", err)
	}
	if !updated {
		s.logger.Info("callback ignored",
			zap.String("checkout_request_id", cb.CheckoutID),
			zap.Int("result_code", cb.ResultCode),
		)
		return nil
	}

	observ.PaymentsResolved.WithLabelValues(string(status)).Inc()
	s.logger.Info("payment resolved",
		zap.String("checkout_request_id", cb.CheckoutID),
		zap.String("status", string(status)),
	)
	return nil
}

// receiptValue finds the settlement reference among the metadata items.
// Absence yields "", which leaves the stored reference unchanged.
func receiptValue(items []MetadataItem) string {
	for _, item := range items {
		if item.Name == receiptItemName {
			if v, ok := item.Value.(string); ok {
				return v
			}
		}
	}
	return ""
}

// Get returns one visible payment. Out-of-scope rows answer NOT_FOUND so
// existence never leaks.
func (s *Service) Get(ctx context.Context, ident scope.Identity, id int64) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, ident, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if p == nil {
		return nil, apperr.NotFound("payment not found")
	}
	return p, nil
}

// List returns visible payments, optionally filtered to one lease.
func (s *Service) List(ctx context.Context, ident scope.Identity, leaseID *int64) ([]models.Payment, error) {
	items, err := s.payments.List(ctx, ident, leaseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// RecordManual writes a completed off-gateway payment (bank, cash, cheque)
// against a visible lease.
func (s *Service) RecordManual(ctx context.Context, ident scope.Identity, leaseID, amount int64, method models.PaymentMethod, reference string) (*models.Payment, error) {
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	if !method.Valid() || method == models.MethodMpesa {
		return nil, apperr.Validation("method must be one of bank, cash, cheque")
	}

	lease, err := s.leases.GetByID(ctx, ident, leaseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if lease == nil {
		return nil, apperr.NotFound("lease not found")
	}

	p, err := s.payments.Create(ctx, leaseID, amount, method, models.PaymentCompleted, reference)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// Cancel moves a visible pending payment to cancelled. This is the only
// path into the cancelled state; the gateway flow never produces it.
func (s *Service) Cancel(ctx context.Context, ident scope.Identity, id int64) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, ident, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if p == nil {
		return nil, apperr.NotFound("payment not found")
	}
	if p.Status != models.PaymentPending {
		return nil, apperr.Conflict("only pending payments can be cancelled")
	}

	cancelled, err := s.payments.Cancel(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !cancelled {
		// Lost a race with a callback resolution.
		return nil, apperr.Conflict("payment already resolved")
	}

	p, err = s.payments.GetByID(ctx, ident, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

type PaymentStore struct {
	pool *pgxpool.Pool
}

func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

const paymentColumns = "pay.id, pay.lease_id, pay.amount, pay.method, pay.status, pay.reference, pay.checkout_id, pay.created_at, pay.updated_at"

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID,
		&p.LeaseID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.Reference,
		&p.CheckoutID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PaymentStore) Create(ctx context.Context, leaseID, amount int64, method models.PaymentMethod, status models.PaymentStatus, reference string) (*models.Payment, error) {
	query := `
		INSERT INTO payments (lease_id, amount, method, status, reference, checkout_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', now(), now())
		RETURNING id, lease_id, amount, method, status, reference, checkout_id, created_at, updated_at`

	p, err := scanPayment(s.pool.QueryRow(ctx, query, leaseID, amount, method, status, reference))
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

func (s *PaymentStore) AttachCheckout(ctx context.Context, id int64, checkoutID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE payments SET checkout_id = $2, updated_at = now() WHERE id = $1`,
		id, checkoutID,
	)
	if err != nil {
		return fmt.Errorf("attach checkout id: %w", err)
	}
	return nil
}

func (s *PaymentStore) MarkFailed(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE payments SET status = 'failed', updated_at = now() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	return nil
}

// Resolve applies a callback outcome to the row correlated by checkoutID.
// The status guard makes redelivery a no-op: a terminal row is never
// rewritten, and its reference is never re-extracted. An empty receipt
// leaves the existing reference in place.
func (s *PaymentStore) Resolve(ctx context.Context, checkoutID string, status models.PaymentStatus, receipt string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET
			status = $2,
			reference = CASE WHEN $3 <> '' THEN $3 ELSE reference END,
			updated_at = now()
		WHERE checkout_id = $1 AND checkout_id <> '' AND status = 'pending'`,
		checkoutID, status, receipt,
	)
	if err != nil {
		return false, fmt.Errorf("resolve payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PaymentStore) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Payment, error) {
	pred := scope.Payments(ident, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments pay
		JOIN leases l ON l.id = pay.lease_id
		JOIN units u ON u.id = l.unit_id
		JOIN properties p ON p.id = u.property_id
		WHERE pay.id = $1 AND %s`, paymentColumns, pred.SQL)

	args := append([]any{id}, pred.Args...)
	p, err := scanPayment(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (s *PaymentStore) List(ctx context.Context, ident scope.Identity, leaseID *int64) ([]models.Payment, error) {
	pred := scope.Payments(ident, 1)
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments pay
		JOIN leases l ON l.id = pay.lease_id
		JOIN units u ON u.id = l.unit_id
		JOIN properties p ON p.id = u.property_id
		WHERE %s`, paymentColumns, pred.SQL)

	args := append([]any{}, pred.Args...)
	if leaseID != nil {
		query += fmt.Sprintf(" AND pay.lease_id = $%d", len(args)+1)
		args = append(args, *leaseID)
	}
	query += " ORDER BY pay.created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

// Cancel moves a still-pending row to cancelled. The pending guard means a
// race with a callback resolution leaves exactly one of the two applied.
func (s *PaymentStore) Cancel(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE payments SET status = 'cancelled', updated_at = now() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("cancel payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

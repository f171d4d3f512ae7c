package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sophie-Muchiri12/rentmg/internal/apperr"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

type LeaseStore struct {
	pool *pgxpool.Pool
}

func NewLeaseStore(pool *pgxpool.Pool) *LeaseStore {
	return &LeaseStore{pool: pool}
}

const leaseColumns = "l.id, l.unit_id, l.tenant_id, l.start_date, l.end_date, l.rent_amount, l.status, l.created_at, l.updated_at"

func scanLease(row pgx.Row) (*models.Lease, error) {
	var l models.Lease
	err := row.Scan(
		&l.ID,
		&l.UnitID,
		&l.TenantID,
		&l.StartDate,
		&l.EndDate,
		&l.RentAmount,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts an active lease with a transactional check-and-set:
// the unit row is locked, the "no other active lease" check runs under that
// lock, and the occupancy flag flips in the same transaction. Two
// concurrent creations for the same unit serialize on the lock; the partial
// unique index on leases(unit_id) WHERE status = 'active' is the backstop.
func (s *LeaseStore) Create(ctx context.Context, in repository.NewLease) (*models.Lease, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var unitID int64
	err = tx.QueryRow(ctx, `SELECT id FROM units WHERE id = $1 FOR UPDATE`, in.UnitID).Scan(&unitID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("unit not found")
		}
		return nil, fmt.Errorf("lock unit: %w", err)
	}

	var hasActive bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leases WHERE unit_id = $1 AND status = 'active')`,
		in.UnitID,
	).Scan(&hasActive)
	if err != nil {
		return nil, fmt.Errorf("check active lease: %w", err)
	}
	if hasActive {
		return nil, apperr.Conflict("unit already has an active lease")
	}

	query := `
		INSERT INTO leases (unit_id, tenant_id, start_date, end_date, rent_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'active', now(), now())
		RETURNING id, unit_id, tenant_id, start_date, end_date, rent_amount, status, created_at, updated_at`

	l, err := scanLease(tx.QueryRow(ctx, query, in.UnitID, in.TenantID, in.StartDate, in.EndDate, in.RentAmount))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("unit already has an active lease")
		}
		return nil, fmt.Errorf("insert lease: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE units SET is_occupied = TRUE, updated_at = now() WHERE id = $1`,
		in.UnitID,
	); err != nil {
		return nil, fmt.Errorf("update unit occupancy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit lease: %w", err)
	}
	return l, nil
}

// UpdateStatus writes the lease status and recomputes the unit's occupancy
// flag in the same transaction, so a reader never observes an occupied unit
// without an active lease or the reverse.
func (s *LeaseStore) UpdateStatus(ctx context.Context, id int64, status models.LeaseStatus) (*models.Lease, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var unitID int64
	err = tx.QueryRow(ctx, `SELECT unit_id FROM leases WHERE id = $1`, id).Scan(&unitID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lease unit: %w", err)
	}

	// Lock the unit first; Create locks in the same order.
	if _, err := tx.Exec(ctx, `SELECT id FROM units WHERE id = $1 FOR UPDATE`, unitID); err != nil {
		return nil, fmt.Errorf("lock unit: %w", err)
	}

	query := `
		UPDATE leases SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, unit_id, tenant_id, start_date, end_date, rent_amount, status, created_at, updated_at`

	l, err := scanLease(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("unit already has an active lease")
		}
		return nil, fmt.Errorf("update lease status: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE units SET
			is_occupied = EXISTS (SELECT 1 FROM leases WHERE unit_id = $1 AND status = 'active'),
			updated_at = now()
		WHERE id = $1`, unitID,
	); err != nil {
		return nil, fmt.Errorf("update unit occupancy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit lease status: %w", err)
	}
	return l, nil
}

func (s *LeaseStore) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Lease, error) {
	pred := scope.Leases(ident, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leases l
		JOIN units u ON u.id = l.unit_id
		JOIN properties p ON p.id = u.property_id
		WHERE l.id = $1 AND %s`, leaseColumns, pred.SQL)

	args := append([]any{id}, pred.Args...)
	l, err := scanLease(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lease: %w", err)
	}
	return l, nil
}

func (s *LeaseStore) List(ctx context.Context, ident scope.Identity) ([]models.Lease, error) {
	pred := scope.Leases(ident, 1)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leases l
		JOIN units u ON u.id = l.unit_id
		JOIN properties p ON p.id = u.property_id
		WHERE %s
		ORDER BY l.created_at DESC`, leaseColumns, pred.SQL)

	rows, err := s.pool.Query(ctx, query, pred.Args...)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	defer rows.Close()

	leases := make([]models.Lease, 0)
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		leases = append(leases, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leases: %w", err)
	}

	return leases, nil
}

func (s *LeaseStore) ActiveByProperty(ctx context.Context, ident scope.Identity, propertyID int64) ([]models.Tenancy, error) {
	pred := scope.Leases(ident, 2)
	query := fmt.Sprintf(`
		SELECT %s, t.full_name, t.email, u.unit_number
		FROM leases l
		JOIN units u ON u.id = l.unit_id
		JOIN properties p ON p.id = u.property_id
		JOIN users t ON t.id = l.tenant_id
		WHERE u.property_id = $1 AND l.status = 'active' AND %s
		ORDER BY u.unit_number`, leaseColumns, pred.SQL)

	args := append([]any{propertyID}, pred.Args...)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenancies: %w", err)
	}
	defer rows.Close()

	tenancies := make([]models.Tenancy, 0)
	for rows.Next() {
		var t models.Tenancy
		if err := rows.Scan(
			&t.ID,
			&t.UnitID,
			&t.TenantID,
			&t.StartDate,
			&t.EndDate,
			&t.RentAmount,
			&t.Status,
			&t.CreatedAt,
			&t.UpdatedAt,
			&t.TenantName,
			&t.TenantEmail,
			&t.UnitNumber,
		); err != nil {
			return nil, fmt.Errorf("scan tenancy: %w", err)
		}
		tenancies = append(tenancies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenancies: %w", err)
	}

	return tenancies, nil
}

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

type UnitStore struct {
	pool *pgxpool.Pool
}

func NewUnitStore(pool *pgxpool.Pool) *UnitStore {
	return &UnitStore{pool: pool}
}

const unitColumns = "u.id, u.property_id, u.unit_number, u.bedrooms, u.bathrooms, u.rent_amount, u.is_occupied, u.created_at, u.updated_at"

func scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	err := row.Scan(
		&u.ID,
		&u.PropertyID,
		&u.UnitNumber,
		&u.Bedrooms,
		&u.Bathrooms,
		&u.RentAmount,
		&u.IsOccupied,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UnitStore) Create(ctx context.Context, in repository.NewUnit) (*models.Unit, error) {
	query := `
		INSERT INTO units (property_id, unit_number, bedrooms, bathrooms, rent_amount, is_occupied, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, now(), now())
		RETURNING id, property_id, unit_number, bedrooms, bathrooms, rent_amount, is_occupied, created_at, updated_at`

	u, err := scanUnit(s.pool.QueryRow(ctx, query, in.PropertyID, in.UnitNumber, in.Bedrooms, in.Bathrooms, in.RentAmount))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("unit number already exists for this property")
		}
		return nil, fmt.Errorf("insert unit: %w", err)
	}
	return u, nil
}

func (s *UnitStore) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Unit, error) {
	pred := scope.Units(ident, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM units u
		JOIN properties p ON p.id = u.property_id
		WHERE u.id = $1 AND %s`, unitColumns, pred.SQL)

	args := append([]any{id}, pred.Args...)
	u, err := scanUnit(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

func (s *UnitStore) ListByProperty(ctx context.Context, ident scope.Identity, propertyID int64) ([]models.Unit, error) {
	pred := scope.Units(ident, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM units u
		JOIN properties p ON p.id = u.property_id
		WHERE u.property_id = $1 AND %s
		ORDER BY u.unit_number`, unitColumns, pred.SQL)

	args := append([]any{propertyID}, pred.Args...)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	units := make([]models.Unit, 0)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}

	return units, nil
}

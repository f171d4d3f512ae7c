package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

type PropertyStore struct {
	pool *pgxpool.Pool
}

func NewPropertyStore(pool *pgxpool.Pool) *PropertyStore {
	return &PropertyStore{pool: pool}
}

const propertyColumns = "p.id, p.owner_id, p.name, p.property_type, p.address, p.city, p.country, p.created_at, p.updated_at"

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.PropertyType,
		&p.Address,
		&p.City,
		&p.Country,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PropertyStore) Create(ctx context.Context, ownerID int64, in repository.NewProperty) (*models.Property, error) {
	query := `
		INSERT INTO properties (owner_id, name, property_type, address, city, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, owner_id, name, property_type, address, city, country, created_at, updated_at`

	p, err := scanProperty(s.pool.QueryRow(ctx, query, ownerID, in.Name, in.PropertyType, in.Address, in.City, in.Country))
	if err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	return p, nil
}

func (s *PropertyStore) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Property, error) {
	pred := scope.Properties(ident, 2)
	query := fmt.Sprintf(`SELECT %s FROM properties p WHERE p.id = $1 AND %s`, propertyColumns, pred.SQL)

	args := append([]any{id}, pred.Args...)
	p, err := scanProperty(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func (s *PropertyStore) List(ctx context.Context, ident scope.Identity) ([]models.Property, error) {
	pred := scope.Properties(ident, 1)
	query := fmt.Sprintf(`
		SELECT %s FROM properties p
		WHERE %s
		ORDER BY p.created_at DESC`, propertyColumns, pred.SQL)

	rows, err := s.pool.Query(ctx, query, pred.Args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	properties := make([]models.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}

	return properties, nil
}

// Summary aggregates occupancy, open issues and the month-to-date completed
// payment total for one visible property.
func (s *PropertyStore) Summary(ctx context.Context, ident scope.Identity, id int64) (*models.PropertySummary, error) {
	pred := scope.Properties(ident, 2)
	query := fmt.Sprintf(`
		SELECT p.id,
			COUNT(u.id),
			COUNT(u.id) FILTER (WHERE u.is_occupied),
			COUNT(u.id) FILTER (WHERE NOT u.is_occupied),
			(SELECT COUNT(*) FROM issues i
				WHERE i.property_id = p.id AND i.status IN ('open', 'in_progress')),
			COALESCE((SELECT SUM(pay.amount)
				FROM payments pay
				JOIN leases l ON l.id = pay.lease_id
				JOIN units lu ON lu.id = l.unit_id
				WHERE lu.property_id = p.id
					AND pay.status = 'completed'
					AND pay.created_at >= date_trunc('month', now())), 0)
		FROM properties p
		LEFT JOIN units u ON u.property_id = p.id
		WHERE p.id = $1 AND %s
		GROUP BY p.id`, pred.SQL)

	args := append([]any{id}, pred.Args...)
	var sum models.PropertySummary
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&sum.PropertyID,
		&sum.TotalUnits,
		&sum.OccupiedUnits,
		&sum.VacantUnits,
		&sum.OpenIssues,
		&sum.CollectedThisMonth,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("property summary: %w", err)
	}
	return &sum, nil
}

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

type IssueStore struct {
	pool *pgxpool.Pool
}

func NewIssueStore(pool *pgxpool.Pool) *IssueStore {
	return &IssueStore{pool: pool}
}

const issueColumns = "i.id, i.title, i.description, i.status, i.priority, i.reporter_id, i.assignee_id, i.property_id, i.unit_id, i.created_at, i.updated_at"

func scanIssue(row pgx.Row) (*models.Issue, error) {
	var i models.Issue
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Status,
		&i.Priority,
		&i.ReporterID,
		&i.AssigneeID,
		&i.PropertyID,
		&i.UnitID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *IssueStore) Create(ctx context.Context, in repository.NewIssue) (*models.Issue, error) {
	query := `
		INSERT INTO issues (title, description, status, priority, reporter_id, property_id, unit_id, created_at, updated_at)
		VALUES ($1, $2, 'open', $3, $4, $5, $6, now(), now())
		RETURNING id, title, description, status, priority, reporter_id, assignee_id, property_id, unit_id, created_at, updated_at`

	i, err := scanIssue(s.pool.QueryRow(ctx, query, in.Title, in.Description, in.Priority, in.ReporterID, in.PropertyID, in.UnitID))
	if err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}
	return i, nil
}

func (s *IssueStore) GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Issue, error) {
	pred := scope.Issues(ident, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM issues i
		LEFT JOIN properties p ON p.id = i.property_id
		WHERE i.id = $1 AND %s`, issueColumns, pred.SQL)

	args := append([]any{id}, pred.Args...)
	i, err := scanIssue(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return i, nil
}

func (s *IssueStore) List(ctx context.Context, ident scope.Identity) ([]models.Issue, error) {
	pred := scope.Issues(ident, 1)
	query := fmt.Sprintf(`
		SELECT %s
		FROM issues i
		LEFT JOIN properties p ON p.id = i.property_id
		WHERE %s
		ORDER BY i.created_at DESC`, issueColumns, pred.SQL)

	rows, err := s.pool.Query(ctx, query, pred.Args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	issues := make([]models.Issue, 0)
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}

	return issues, nil
}

// Update patches only the allow-listed columns; nil pointers leave a column
// unchanged. The visibility predicate is part of the UPDATE itself, so an
// out-of-scope issue is indistinguishable from an absent one.
func (s *IssueStore) Update(ctx context.Context, ident scope.Identity, id int64, patch repository.IssueUpdate) (*models.Issue, error) {
	var status, priority *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	if patch.Priority != nil {
		v := string(*patch.Priority)
		priority = &v
	}

	pred := scope.Issues(ident, 7)
	query := fmt.Sprintf(`
		UPDATE issues SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			status = COALESCE($4, status),
			priority = COALESCE($5, priority),
			assignee_id = COALESCE($6, assignee_id),
			updated_at = now()
		WHERE id = $1 AND id IN (
			SELECT i.id
			FROM issues i
			LEFT JOIN properties p ON p.id = i.property_id
			WHERE i.id = $1 AND %s
		)
		RETURNING id, title, description, status, priority, reporter_id, assignee_id, property_id, unit_id, created_at, updated_at`,
		pred.SQL)

	args := append([]any{id, patch.Title, patch.Description, status, priority, patch.AssigneeID}, pred.Args...)
	i, err := scanIssue(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update issue: %w", err)
	}
	return i, nil
}

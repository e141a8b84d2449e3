package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/collectiva/loan-engine/internal/domain"
)

type branchRepository struct {
	db *sqlx.DB
}

func NewBranchRepository(db *sqlx.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) error {
	query := `
		INSERT INTO branches (id, name, loan_target, disbursement_target, created_at, updated_at)
		VALUES (:id, :name, :loan_target, :disbursement_target, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, branch)
	return err
}

func (r *branchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	query := `
		SELECT id, name, loan_target, disbursement_target, created_at, updated_at
		FROM branches
		WHERE id = $1
	`

	var branch domain.Branch
	if err := r.db.GetContext(ctx, &branch, query, id); err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) Update(ctx context.Context, branch *domain.Branch) error {
	query := `
		UPDATE branches
		SET name = :name, loan_target = :loan_target,
			disbursement_target = :disbursement_target, updated_at = :updated_at
		WHERE id = :id
	`

	branch.UpdatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, query, branch)
	return err
}

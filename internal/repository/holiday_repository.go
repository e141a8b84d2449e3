package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
)

type holidayRepository struct {
	db *sqlx.DB
}

func NewHolidayRepository(db *sqlx.DB) HolidayRepository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) Create(ctx context.Context, holiday *domain.Holiday) error {
	query := `
		INSERT INTO holidays (id, date, recurring, reason, created_at)
		VALUES (:id, :date, :recurring, :reason, :created_at)
	`

	holiday.Date = calendar.Normalize(holiday.Date)
	_, err := r.db.NamedExecContext(ctx, query, holiday)
	return err
}

func (r *holidayRepository) List(ctx context.Context) ([]domain.Holiday, error) {
	query := `SELECT id, date, recurring, reason, created_at FROM holidays ORDER BY date`

	var holidays []domain.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query); err != nil {
		return nil, err
	}
	return holidays, nil
}

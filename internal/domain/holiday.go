package domain

import (
	"time"

	"github.com/google/uuid"
)

// Holiday is a non-business-day override. A recurring holiday matches by
// month+day across all years; a non-recurring holiday matches the exact date.
type Holiday struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Date      time.Time `json:"date" db:"date"`
	Recurring bool      `json:"recurring" db:"recurring"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CreateHolidayRequest struct {
	Date      string `json:"date" validate:"required"`
	Recurring bool   `json:"recurring"`
	Reason    string `json:"reason" validate:"required"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered wallet owner.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	TaxID        string    `json:"tax_id"` // normalized: digits only
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

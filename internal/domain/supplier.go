package domain

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a wholesaler or distributor the pharmacy orders stock
// from. Only the name is mandatory; contact fields are free-form.
type Supplier struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	ContactPerson string    `json:"contact_person,omitempty" db:"contact_person"`
	Email         string    `json:"email,omitempty" db:"email"`
	Phone         string    `json:"phone,omitempty" db:"phone"`
	Address       string    `json:"address,omitempty" db:"address"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

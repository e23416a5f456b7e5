package patient

import (
	"time"

	"github.com/telecare/telecare/internal/resource"
)

// Valid patient statuses.
var validStatuses = map[string]bool{
	"active":   true,
	"inactive": true,
}

// Patient maps to the patient table.
type Patient struct {
	resource.Meta
	FirstName   string     `db:"first_name" json:"first_name" validate:"required"`
	LastName    string     `db:"last_name" json:"last_name" validate:"required"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	Status      string     `db:"status" json:"status"`
}

// DisplayName renders the patient's full name for listings.
func (p *Patient) DisplayName() string {
	return resource.DisplayName(&p.FirstName, &p.LastName, resource.FallbackUnknown)
}

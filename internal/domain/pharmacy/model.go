package pharmacy

import (
	"github.com/telecare/telecare/internal/resource"
)

// Pharmacy maps to the pharmacy table. A directory entry, not patient-scoped.
type Pharmacy struct {
	resource.Meta
	Name    string  `db:"name" json:"name" validate:"required"`
	Address *string `db:"address" json:"address,omitempty"`
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Fax     *string `db:"fax" json:"fax,omitempty"`
	Active  bool    `db:"active" json:"active"`
}

// PhoneDisplay renders the phone with the standard directory fallback.
func (p *Pharmacy) PhoneDisplay() string {
	return resource.Display(p.Phone, resource.FallbackNA)
}

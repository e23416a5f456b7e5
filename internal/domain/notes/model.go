package notes

import (
	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/resource"
)

// Valid note statuses.
var validStatuses = map[string]bool{
	"draft": true,
	"final": true,
}

// Note maps to the clinical_note table. AuthorName is read-only, joined from
// the practitioner table; it is never written back.
type Note struct {
	resource.Meta
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	AuthorID   *uuid.UUID `db:"author_id" json:"author_id,omitempty"`
	AuthorName *string    `db:"author_name" json:"author_name,omitempty"`
	Category   *string    `db:"category" json:"category,omitempty"`
	Content    string     `db:"content" json:"content" validate:"required"`
	Status     string     `db:"status" json:"status"`
}

// ParentScope scopes cache invalidation to the note's patient.
func (n *Note) ParentScope() string { return n.PatientID.String() }

// View is the note as rendered to clients, with the author relation flattened
// to a display name.
type View struct {
	*Note
	AuthorDisplay string `json:"author_display"`
}

// View applies the display fallback: notes without a resolvable author (system
// generated, or the author record was removed) render as authored by System.
func (n *Note) View() View {
	return View{
		Note:          n,
		AuthorDisplay: resource.Display(n.AuthorName, resource.FallbackSystem),
	}
}

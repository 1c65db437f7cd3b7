package resolve

import (
	"fmt"

	"github.com/ppiankov/ticketscan/internal/ticket"
)

// Projection is one target value selected through the assignment
type Projection struct {
	Field    string `json:"field" yaml:"field"`
	Position int    `json:"position" yaml:"position"`
	Value    int    `json:"value" yaml:"value"`
}

// Project selects the target ticket's values for every assigned field whose
// name starts with prefix, ordered by position, and multiplies them. An empty
// selection has product 1.
func (a Assignment) Project(target ticket.Ticket, prefix string) ([]Projection, int, error) {
	var out []Projection
	product := 1

	for _, m := range a.Ordered() {
		if !m.Rule.HasPrefix(prefix) {
			continue
		}
		if m.Position >= len(target) {
			return nil, 0, fmt.Errorf("target ticket has %d fields, %q is assigned position %d", len(target), m.Rule.Field(), m.Position)
		}
		v := target[m.Position]
		out = append(out, Projection{Field: m.Rule.Field(), Position: m.Position, Value: v})
		product *= v
	}

	return out, product, nil
}

// String renders a match as "field@position"
func (m Match) String() string {
	return fmt.Sprintf("%s@%d", m.Rule.Field(), m.Position)
}

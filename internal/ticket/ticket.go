package ticket

import (
	"strconv"
	"strings"
)

// Ticket is a fixed-width record of field values. Positions are 0-indexed.
type Ticket []int

// Width returns the number of positions on the ticket
func (t Ticket) Width() int {
	return len(t)
}

// String renders the ticket in its input syntax, e.g. "7,1,14"
func (t Ticket) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Clone returns an independent copy of the ticket
func (t Ticket) Clone() Ticket {
	if t == nil {
		return nil
	}
	out := make(Ticket, len(t))
	copy(out, t)
	return out
}

package validate

import "github.com/ppiankov/ticketscan/internal/ticket"

// FieldCheck pairs a field value with whether any rule accepts it
type FieldCheck struct {
	Value int  `json:"value"`
	Valid bool `json:"valid"`
}

// CheckFields classifies every value on the ticket against the full rule set
func CheckFields(t ticket.Ticket, rules ticket.Rules) []FieldCheck {
	checks := make([]FieldCheck, len(t))
	for i, v := range t {
		checks[i] = FieldCheck{Value: v, Valid: rules.AnyValid(v)}
	}
	return checks
}

// TicketErrorRate sums the values on a single ticket that match no rule
func TicketErrorRate(t ticket.Ticket, rules ticket.Rules) int {
	sum := 0
	for _, v := range t {
		if !rules.AnyValid(v) {
			sum += v
		}
	}
	return sum
}

// FieldErrorRate returns the scanning error rate of a batch: the sum of every
// field value, across all tickets, that matches no rule. Values are summed,
// not counted.
func FieldErrorRate(tickets []ticket.Ticket, rules ticket.Rules) int {
	total := 0
	for _, t := range tickets {
		total += TicketErrorRate(t, rules)
	}
	return total
}

// IsValid reports whether every field on the ticket matches at least one rule
func IsValid(t ticket.Ticket, rules ticket.Rules) bool {
	for _, v := range t {
		if !rules.AnyValid(v) {
			return false
		}
	}
	return true
}

// FilterValid returns the tickets whose fields all match at least one rule.
// Invalid tickets are dropped whole. Input order is preserved.
func FilterValid(tickets []ticket.Ticket, rules ticket.Rules) []ticket.Ticket {
	valid := make([]ticket.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if IsValid(t, rules) {
			valid = append(valid, t)
		}
	}
	return valid
}

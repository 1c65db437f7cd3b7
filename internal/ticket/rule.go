package ticket

import (
	"fmt"
	"strings"
)

// Range is an inclusive numeric interval. A range with Low > High matches nothing.
type Range struct {
	Low  int `json:"low" yaml:"low"`
	High int `json:"high" yaml:"high"`
}

// Contains reports whether v lies within the range, bounds included
func (r Range) Contains(v int) bool {
	return r.Low <= v && v <= r.High
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// Rule is a named field constraint: a union of inclusive ranges.
// Rules are immutable once built; accessors return copies.
type Rule struct {
	field  string
	ranges []Range
}

// NewRule builds a rule from a field name and its bounds.
// Bounds are taken as given; no ordering or overlap checks are made.
func NewRule(field string, bounds ...Range) Rule {
	ranges := make([]Range, len(bounds))
	copy(ranges, bounds)
	return Rule{field: field, ranges: ranges}
}

// Field returns the rule's field name
func (r Rule) Field() string {
	return r.field
}

// Ranges returns a copy of the rule's ranges in declaration order
func (r Rule) Ranges() []Range {
	out := make([]Range, len(r.ranges))
	copy(out, r.ranges)
	return out
}

// Valid reports whether value falls inside at least one of the rule's ranges
func (r Rule) Valid(value int) bool {
	for _, rg := range r.ranges {
		if rg.Contains(value) {
			return true
		}
	}
	return false
}

// HasPrefix reports whether the field name starts with prefix
func (r Rule) HasPrefix(prefix string) bool {
	return strings.HasPrefix(r.field, prefix)
}

// String renders the rule in its input syntax, e.g. "class: 1-3 or 5-7"
func (r Rule) String() string {
	parts := make([]string, len(r.ranges))
	for i, rg := range r.ranges {
		parts[i] = rg.String()
	}
	return r.field + ": " + strings.Join(parts, " or ")
}

// Rules is an ordered rule set. Order matters to the resolver's tie-breaking.
type Rules []Rule

// AnyValid reports whether value satisfies at least one rule in the set
func (rs Rules) AnyValid(value int) bool {
	for _, r := range rs {
		if r.Valid(value) {
			return true
		}
	}
	return false
}

// Fields returns the field names in rule order
func (rs Rules) Fields() []string {
	fields := make([]string, len(rs))
	for i, r := range rs {
		fields[i] = r.field
	}
	return fields
}

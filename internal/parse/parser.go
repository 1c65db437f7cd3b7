// Package parse reads the ticket notes text format:
//
//	class: 1-3 or 5-7
//	row: 6-11 or 33-44
//
//	your ticket:
//	7,1,14
//
//	nearby tickets:
//	7,3,47
//	40,4,50
//
// Each line is first classified into a LineKind, then folded into a Document
// according to the current section.
package parse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/ticketscan/internal/ticket"
)

const (
	headerYours  = "your ticket:"
	headerNearby = "nearby tickets:"
)

var (
	// ErrNoTarget is returned when the input has no "your ticket:" section
	ErrNoTarget = errors.New("missing your ticket section")

	// ErrNoRules is returned when the input declares no rules
	ErrNoRules = errors.New("no rules declared")

	// ErrRaggedTicket is returned when tickets differ in width
	ErrRaggedTicket = errors.New("tickets differ in width")
)

// Error is a parse failure tied to an input line
type Error struct {
	Line int    // 1-based
	Text string // offending line
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Document is a parsed set of notes
type Document struct {
	Rules  ticket.Rules
	Yours  ticket.Ticket
	Nearby []ticket.Ticket
}

// Width returns the ticket width of the document
func (d *Document) Width() int {
	return len(d.Yours)
}

// section tracks which part of the notes is being read
type section int

const (
	sectionRules section = iota
	sectionYours
	sectionNearby
)

// LineKind classifies a non-empty input line
type LineKind int

const (
	KindRule LineKind = iota
	KindYoursHeader
	KindNearbyHeader
	KindTicket
)

func (k LineKind) String() string {
	switch k {
	case KindRule:
		return "rule"
	case KindYoursHeader:
		return "your-ticket header"
	case KindNearbyHeader:
		return "nearby-tickets header"
	case KindTicket:
		return "ticket"
	default:
		return "unknown"
	}
}

// Line is a classified input line. Exactly one of Rule or Ticket is set for
// KindRule and KindTicket lines; headers carry neither.
type Line struct {
	Kind   LineKind
	Rule   ticket.Rule
	Ticket ticket.Ticket
}

// Classify parses a single trimmed, non-empty line into its tagged form
func Classify(text string) (Line, error) {
	switch text {
	case headerYours:
		return Line{Kind: KindYoursHeader}, nil
	case headerNearby:
		return Line{Kind: KindNearbyHeader}, nil
	}

	if strings.Contains(text, ":") {
		rule, err := ParseRule(text)
		if err != nil {
			return Line{}, err
		}
		return Line{Kind: KindRule, Rule: rule}, nil
	}

	t, err := ParseTicket(text)
	if err != nil {
		return Line{}, err
	}
	return Line{Kind: KindTicket, Ticket: t}, nil
}

// ParseRule parses "name: a-b or c-d ..."
func ParseRule(text string) (ticket.Rule, error) {
	name, rangeText, ok := strings.Cut(text, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return ticket.Rule{}, fmt.Errorf("rule needs a field name before ':'")
	}

	rangeText = strings.TrimSpace(rangeText)
	if rangeText == "" {
		return ticket.Rule{}, fmt.Errorf("rule %q has no ranges", name)
	}

	var bounds []ticket.Range
	for _, part := range strings.Split(rangeText, " or ") {
		lowText, highText, ok := strings.Cut(strings.TrimSpace(part), "-")
		if !ok {
			return ticket.Rule{}, fmt.Errorf("range %q is not low-high", strings.TrimSpace(part))
		}
		low, err := strconv.Atoi(strings.TrimSpace(lowText))
		if err != nil {
			return ticket.Rule{}, fmt.Errorf("range low bound: %w", err)
		}
		high, err := strconv.Atoi(strings.TrimSpace(highText))
		if err != nil {
			return ticket.Rule{}, fmt.Errorf("range high bound: %w", err)
		}
		bounds = append(bounds, ticket.Range{Low: low, High: high})
	}

	return ticket.NewRule(name, bounds...), nil
}

// ParseTicket parses a comma-separated list of integers
func ParseTicket(text string) (ticket.Ticket, error) {
	fields := strings.Split(text, ",")
	t := make(ticket.Ticket, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("ticket field %d: %w", i, err)
		}
		t[i] = v
	}
	return t, nil
}

// Parse reads a complete document
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{}
	state := sectionRules
	seenYours := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		line, err := Classify(text)
		if err != nil {
			return nil, &Error{Line: lineNo, Text: text, Err: err}
		}

		switch line.Kind {
		case KindYoursHeader:
			state = sectionYours
			continue
		case KindNearbyHeader:
			state = sectionNearby
			continue
		}

		switch state {
		case sectionRules:
			if line.Kind != KindRule {
				return nil, &Error{Line: lineNo, Text: text, Err: fmt.Errorf("expected rule, got %s", line.Kind)}
			}
			doc.Rules = append(doc.Rules, line.Rule)
		case sectionYours:
			if line.Kind != KindTicket {
				return nil, &Error{Line: lineNo, Text: text, Err: fmt.Errorf("expected ticket, got %s", line.Kind)}
			}
			if seenYours {
				return nil, &Error{Line: lineNo, Text: text, Err: fmt.Errorf("more than one ticket under %q", headerYours)}
			}
			doc.Yours = line.Ticket
			seenYours = true
		case sectionNearby:
			if line.Kind != KindTicket {
				return nil, &Error{Line: lineNo, Text: text, Err: fmt.Errorf("expected ticket, got %s", line.Kind)}
			}
			if seenYours && len(line.Ticket) != len(doc.Yours) {
				return nil, &Error{Line: lineNo, Text: text, Err: fmt.Errorf("%w: %d fields, expected %d", ErrRaggedTicket, len(line.Ticket), len(doc.Yours))}
			}
			doc.Nearby = append(doc.Nearby, line.Ticket)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if len(doc.Rules) == 0 {
		return nil, ErrNoRules
	}
	if !seenYours {
		return nil, ErrNoTarget
	}
	for i, t := range doc.Nearby {
		if len(t) != len(doc.Yours) {
			return nil, fmt.Errorf("nearby ticket %d: %w: %d fields, expected %d", i, ErrRaggedTicket, len(t), len(doc.Yours))
		}
	}

	return doc, nil
}

// ParseString is a convenience wrapper around Parse
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

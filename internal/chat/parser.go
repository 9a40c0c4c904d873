// Package chat implements the conversational order-intake core: the
// order line parser, the exact-then-fuzzy item resolver, the identity
// gate, and the per-account conversation state machine.
package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsedLine is a structured order line request before resolution.
type ParsedLine struct {
	Name     string
	Quantity int64
}

// ParseReason classifies why a segment failed to parse.
type ParseReason string

const (
	ParseMissingName     ParseReason = "missing name"
	ParseMissingQuantity ParseReason = "missing quantity"
	ParseBadQuantity     ParseReason = "quantity is not a number"
)

// ParseError reports a single malformed segment. Parsing never fails a
// whole message; every segment is classified independently.
type ParseError struct {
	RawText string
	Reason  ParseReason
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%q: %s", e.RawText, e.Reason)
}

// ParseOrder parses a message body into order line requests.
//
// Grammar: line items separated by ';', each item "name,quantity" with
// both fields trimmed; quantity must be a non-negative integer. Fully
// empty segments (trailing semicolons, stray whitespace) are skipped.
// The returned sets together cover every non-empty segment, so the
// caller sees all problems in one pass.
func ParseOrder(body string) ([]ParsedLine, []ParseError) {
	var lines []ParsedLine
	var errs []ParseError

	for _, segment := range strings.Split(body, ";") {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" {
			continue
		}

		name, qtyText, hasQty := strings.Cut(trimmed, ",")
		name = strings.TrimSpace(name)
		qtyText = strings.TrimSpace(qtyText)

		if name == "" {
			errs = append(errs, ParseError{RawText: trimmed, Reason: ParseMissingName})
			continue
		}
		if !hasQty || qtyText == "" {
			errs = append(errs, ParseError{RawText: trimmed, Reason: ParseMissingQuantity})
			continue
		}

		qty, err := strconv.ParseInt(qtyText, 10, 64)
		if err != nil || qty < 0 {
			errs = append(errs, ParseError{RawText: trimmed, Reason: ParseBadQuantity})
			continue
		}

		lines = append(lines, ParsedLine{Name: name, Quantity: qty})
	}

	return lines, errs
}

// Package parser recognizes the structured expense-record command inside
// free text. Parsing is pure: no I/O, no state beyond the compiled grammar.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"kakeibot/internal/domain"
)

// Grammar selects how the text after the record marker is interpreted.
type Grammar string

const (
	// GrammarSimple is "<amount>[円] [description]"; the description is
	// optional and defaults to a placeholder.
	GrammarSimple Grammar = "simple"
	// GrammarStructured is "<amount>[円] <category> <description>"; category
	// and description must both be present or the whole input fails to parse.
	GrammarStructured Grammar = "structured"
)

// DefaultDescription is substituted when the simple grammar carries no
// detail text.
const DefaultDescription = "詳細なし"

var (
	// The marker accepts both half-width and full-width colons.
	markerRe     = regexp.MustCompile(`^記録[:：]`)
	// Whitespace before the description is optional: spaceless Japanese
	// input like 記録:500円コーヒー is the common case.
	simpleRe     = regexp.MustCompile(`^(\d+)円?\s*(.+)?$`)
	structuredRe = regexp.MustCompile(`^記録[:：]\s*(\d+)円?\s+(\S+)\s+(.+)$`)
)

// Parser decodes record commands under one grammar, fixed at construction.
type Parser struct {
	grammar Grammar
}

func New(g Grammar) *Parser {
	if g == "" {
		g = GrammarSimple
	}
	return &Parser{grammar: g}
}

func (p *Parser) Grammar() Grammar { return p.grammar }

// IsCommand reports whether the text starts with the record marker,
// regardless of whether the rest of it parses.
func (p *Parser) IsCommand(text string) bool {
	return markerRe.MatchString(text)
}

// Parse attempts to decode text as a record command. It returns nil when the
// text is not a record command or does not satisfy the grammar; such text
// falls through to the generation path. A marker with no digit run is a
// parse failure, never a record with amount zero.
func (p *Parser) Parse(text string) *domain.ParsedRecord {
	if !markerRe.MatchString(text) {
		return nil
	}

	if p.grammar == GrammarStructured {
		m := structuredRe.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		amount, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return &domain.ParsedRecord{
			Amount:      amount,
			Category:    m[2],
			Description: m[3],
		}
	}

	body := strings.TrimSpace(markerRe.ReplaceAllString(text, ""))
	m := simpleRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	desc := m[2]
	if desc == "" {
		desc = DefaultDescription
	}
	return &domain.ParsedRecord{Amount: amount, Description: desc}
}

// Package compose renders the final reply text for each dispatch outcome.
// Every method is a pure function of its arguments and the persona loaded at
// startup, so composing the same outcome twice yields identical text.
package compose

import (
	"fmt"
	"strconv"
	"strings"

	"kakeibot/internal/domain"
	"kakeibot/internal/persona"
)

// Composer renders reply text from persona templates.
type Composer struct {
	persona *persona.Persona
}

func New(p *persona.Persona) *Composer {
	if p == nil {
		p = persona.Default()
	}
	return &Composer{persona: p}
}

// RecordSuccess confirms a stored (or skipped, best-effort) record.
func (c *Composer) RecordSuccess(rec domain.ParsedRecord) string {
	var b strings.Builder
	b.WriteString("📝 記録完了\n")
	fmt.Fprintf(&b, "金額: %s円\n", groupThousands(rec.Amount))
	if rec.Category != "" {
		fmt.Fprintf(&b, "カテゴリ: %s\n", rec.Category)
	}
	fmt.Fprintf(&b, "内容: %s", rec.Description)
	if c.persona.RecordClosing != "" {
		b.WriteString("\n\n")
		b.WriteString(c.persona.RecordClosing)
	}
	return b.String()
}

// RecordFailure explains the expected command syntax.
func (c *Composer) RecordFailure() string {
	return c.persona.RecordUsage
}

// RecordSinkError reports a parsed record that the sink could not store.
func (c *Composer) RecordSinkError() string {
	return c.persona.RecordError
}

// GenerationSuccess passes the provider's text through verbatim.
func (c *Composer) GenerationSuccess(text string) string {
	return text
}

// GenerationFailure is the fixed in-persona fallback used whenever the
// provider call fails.
func (c *Composer) GenerationFailure() string {
	return c.persona.Fallback
}

// groupThousands formats n with comma-grouped thousands (1500 -> "1,500").
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

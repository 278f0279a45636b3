// Package redact strips personally identifying values from evidence packs
// before any text leaves the pipeline, and flags sources that look like they
// concern a living person.
//
// Detection is pattern matching, not a classifier. The SSN/date heuristic
// deliberately accepts false negatives (a real SSN ending in a plausible year
// is missed) so genealogical dates survive redaction.
package redact

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kinfolio/dossier-cli/internal/model"
)

// Result is the outcome of one redaction pass.
type Result struct {
	// RedactedPack is a deep copy; the input pack is never mutated.
	RedactedPack *model.EvidencePack `json:"redactedPack"`
	// Redactions records every individual substitution, in scan order.
	Redactions []model.Redaction `json:"redactions"`
	// HasLivingIndicators is true when any source matched an indicator
	// phrase. Advisory only.
	HasLivingIndicators bool `json:"hasLivingIndicators"`
}

type patternClass struct {
	typ         model.RedactionType
	re          *regexp.Regexp
	placeholder string
}

// Engine applies a fixed rule set to evidence packs. Safe for concurrent use.
type Engine struct {
	indicators []string
	// Fixed application order: email, phone, then SSN-shaped. The inserted
	// placeholders contain no digits or at-signs, so a second pass over
	// already-redacted text matches nothing.
	patterns []patternClass
	yearMin  int
	yearMax  int
}

// NewEngine compiles the rule set into a reusable engine.
func NewEngine(rules Rules) (*Engine, error) {
	indicators := make([]string, len(rules.LivingIndicators))
	for i, phrase := range rules.LivingIndicators {
		indicators[i] = strings.ToLower(phrase)
	}

	e := &Engine{
		indicators: indicators,
		yearMin:    rules.DateYearMin,
		yearMax:    rules.DateYearMax,
	}

	for _, pc := range []struct {
		typ         model.RedactionType
		pattern     string
		placeholder string
	}{
		{model.RedactionTypeEmail, rules.EmailPattern, rules.EmailPlaceholder},
		{model.RedactionTypePhone, rules.PhonePattern, rules.PhonePlaceholder},
		{model.RedactionTypeSSN, rules.SSNPattern, rules.SSNPlaceholder},
	} {
		re, err := regexp.Compile(pc.pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "redact: compile %s pattern", pc.typ)
		}
		e.patterns = append(e.patterns, patternClass{typ: pc.typ, re: re, placeholder: pc.placeholder})
	}

	return e, nil
}

// Redact produces a sanitized deep copy of the pack plus the audit trail.
// Pure transformation: no storage or network side effects.
func (e *Engine) Redact(pack *model.EvidencePack) Result {
	out := Result{RedactedPack: pack.Clone()}

	for i := range out.RedactedPack.Sources {
		src := &out.RedactedPack.Sources[i]

		if e.hasLivingIndicators(src) {
			src.HasLivingIndicators = true
			out.HasLivingIndicators = true
		}

		src.Citation = e.redactField(src.ID, "citation", src.Citation, &out.Redactions)
		src.ReasonAttached = e.redactField(src.ID, "reasonAttached", src.ReasonAttached, &out.Redactions)
		src.RawText = e.redactField(src.ID, "rawText", src.RawText, &out.Redactions)

		for j := range src.Indexed.Fields {
			path := fmt.Sprintf("indexed.fields[%d].value", j)
			src.Indexed.Fields[j].Value = e.redactField(src.ID, path, src.Indexed.Fields[j].Value, &out.Redactions)
		}
		for j := range src.Indexed.TextBlocks {
			path := fmt.Sprintf("indexed.textBlocks[%d]", j)
			src.Indexed.TextBlocks[j] = e.redactField(src.ID, path, src.Indexed.TextBlocks[j], &out.Redactions)
		}
	}

	return out
}

// hasLivingIndicators scans the concatenated free text of a source for any
// indicator phrase, case-insensitively.
func (e *Engine) hasLivingIndicators(src *model.Source) bool {
	var b strings.Builder
	b.WriteString(src.Title)
	b.WriteByte('\n')
	b.WriteString(src.Citation)
	b.WriteByte('\n')
	b.WriteString(src.ReasonAttached)
	b.WriteByte('\n')
	b.WriteString(src.RawText)
	for _, f := range src.Indexed.Fields {
		b.WriteByte('\n')
		b.WriteString(f.Label)
		b.WriteByte(' ')
		b.WriteString(f.Value)
	}
	for _, block := range src.Indexed.TextBlocks {
		b.WriteByte('\n')
		b.WriteString(block)
	}

	haystack := strings.ToLower(b.String())
	for _, phrase := range e.indicators {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}

// redactField applies every pattern class to one field value, recording one
// Redaction per substitution.
func (e *Engine) redactField(sourceID, path, value string, audit *[]model.Redaction) string {
	if value == "" {
		return value
	}
	for _, pc := range e.patterns {
		value = pc.re.ReplaceAllStringFunc(value, func(match string) string {
			if pc.typ == model.RedactionTypeSSN && e.looksLikeDate(match) {
				return match
			}
			*audit = append(*audit, model.Redaction{
				SourceID:      sourceID,
				Field:         path,
				OriginalValue: match,
				RedactedValue: pc.placeholder,
				Type:          pc.typ,
			})
			return pc.placeholder
		})
	}
	return value
}

// looksLikeDate reports whether an SSN-shaped match reads as a date: its last
// 4 digits form a year inside the configured window.
func (e *Engine) looksLikeDate(match string) bool {
	digits := make([]byte, 0, len(match))
	for i := 0; i < len(match); i++ {
		if match[i] >= '0' && match[i] <= '9' {
			digits = append(digits, match[i])
		}
	}
	if len(digits) < 4 {
		return false
	}
	year, err := strconv.Atoi(string(digits[len(digits)-4:]))
	if err != nil {
		return false
	}
	return year >= e.yearMin && year <= e.yearMax
}

package redact

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is the immutable configuration a redaction engine is built from.
// The engine never mutates it at runtime; redaction stays a pure function of
// (pack, rules).
type Rules struct {
	// LivingIndicators are matched case-insensitively against a source's
	// free text. A hit is advisory only; it never blocks processing.
	LivingIndicators []string `yaml:"living_indicators"`

	EmailPattern string `yaml:"email_pattern"`
	PhonePattern string `yaml:"phone_pattern"`
	SSNPattern   string `yaml:"ssn_pattern"`

	EmailPlaceholder string `yaml:"email_placeholder"`
	PhonePlaceholder string `yaml:"phone_placeholder"`
	SSNPlaceholder   string `yaml:"ssn_placeholder"`

	// A 3-2-4 digit group whose trailing 4 digits parse to a year in
	// [DateYearMin, DateYearMax] is classified as a date and left alone.
	DateYearMin int `yaml:"date_year_min"`
	DateYearMax int `yaml:"date_year_max"`
}

// DefaultRules returns the shipped detection vocabulary and patterns.
func DefaultRules() Rules {
	return Rules{
		LivingIndicators: []string{
			"living",
			"private",
			"current address",
			"contact info",
			"phone number",
			"email address",
		},
		EmailPattern:     `[A-Za-z0-9._%+\-]+@[A-Za-z0-9][A-Za-z0-9.\-]*\.[A-Za-z]{2,}`,
		PhonePattern:     `(?:\+?1[-. ]?)?\(?[0-9]{3}\)?[-. ]?[0-9]{3}[-. ]?[0-9]{4}\b`,
		SSNPattern:       `\b[0-9]{3}[-. ]?[0-9]{2}[-. ]?[0-9]{4}\b`,
		EmailPlaceholder: "[EMAIL REDACTED]",
		PhonePlaceholder: "[PHONE REDACTED]",
		SSNPlaceholder:   "[SSN REDACTED]",
		DateYearMin:      1800,
		DateYearMax:      2100,
	}
}

// LoadRules reads a rules override from a YAML file. Fields left unset fall
// back to the defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "redact: read rules %s", path)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, eris.Wrap(err, "redact: parse rules")
	}
	return rules, nil
}

// Package validate checks raw evidence pack payloads against the accepted
// schema before anything downstream touches them.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"

	"github.com/kinfolio/dossier-cli/internal/model"
)

// RejectionKind categorizes why a payload was refused.
type RejectionKind string

const (
	RejectInvalidJSON     RejectionKind = "invalid_json"
	RejectSchemaVersion   RejectionKind = "schema_version"
	RejectMissingField    RejectionKind = "missing_field"
	RejectSourcesNotArray RejectionKind = "sources_not_array"
)

// Rejection is a structured validation failure. Callers match on Kind to
// produce precise user-facing errors.
type Rejection struct {
	Kind  RejectionKind
	Field string
	Msg   string
}

func (r *Rejection) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("evidence pack rejected (%s): %s: %s", r.Kind, r.Field, r.Msg)
	}
	return fmt.Sprintf("evidence pack rejected (%s): %s", r.Kind, r.Msg)
}

// Pack validates a raw JSON payload and returns the decoded evidence pack.
// Any schemaVersion other than the supported literal rejects the whole
// payload; there is no partial acceptance. The function is pure.
func Pack(data []byte) (*model.EvidencePack, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Rejection{Kind: RejectInvalidJSON, Msg: "payload is not a JSON object"}
	}

	version, ok := stringField(raw, "schemaVersion")
	if !ok || version != model.SchemaVersion {
		return nil, &Rejection{
			Kind:  RejectSchemaVersion,
			Field: "schemaVersion",
			Msg:   fmt.Sprintf("unsupported schema version (want %q)", model.SchemaVersion),
		}
	}

	for _, f := range []string{"runId", "capturedAt"} {
		if v, ok := stringField(raw, f); !ok || v == "" {
			return nil, &Rejection{Kind: RejectMissingField, Field: f, Msg: "must be a non-empty string"}
		}
	}

	personRaw, ok := raw["person"]
	if !ok || isJSONNull(personRaw) {
		return nil, &Rejection{Kind: RejectMissingField, Field: "person", Msg: "must be a non-null object"}
	}
	var person map[string]json.RawMessage
	if err := json.Unmarshal(personRaw, &person); err != nil {
		return nil, &Rejection{Kind: RejectMissingField, Field: "person", Msg: "must be a non-null object"}
	}

	sourcesRaw, ok := raw["sources"]
	if !ok {
		return nil, &Rejection{Kind: RejectMissingField, Field: "sources", Msg: "field is required"}
	}
	var sources []json.RawMessage
	if err := json.Unmarshal(sourcesRaw, &sources); err != nil {
		return nil, &Rejection{Kind: RejectSourcesNotArray, Field: "sources", Msg: "must be an array"}
	}

	var pack model.EvidencePack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, eris.Wrap(err, "validate: decode pack")
	}
	if pack.Sources == nil {
		pack.Sources = []model.Source{}
	}
	if pack.Diagnostics.TotalSources < 0 {
		pack.Diagnostics.TotalSources = 0
	}
	pack.UILocale = canonicalLocale(pack.UILocale)

	return &pack, nil
}

// canonicalLocale normalizes a BCP 47 tag ("en-us" -> "en-US"). Unparseable
// values pass through untouched; the locale is informational only.
func canonicalLocale(locale string) string {
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	return tag.String()
}

func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

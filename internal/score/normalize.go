package score

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/verinews/relayer/internal/model"
)

// Models answer scoring prompts with loosely-structured JSON: single-quoted
// keys, percent signs inside number positions, prose around the object.
// Everything here is a pure function over that output; no generic errors
// escape, only model.ParseError.

// jsonObjectPattern greedily matches the first brace-delimited substring,
// spanning from the first '{' to the last '}'.
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// FirstJSONObject returns the first brace-delimited substring of raw,
// or false if raw contains no '{...}' span.
func FirstJSONObject(raw string) (string, bool) {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return "", false
	}
	return match, true
}

// normalizeQuotes rewrites single-quoted JSON to double-quoted and strips
// percent signs so "{'Fact_score': 97%}" becomes `{"Fact_score": 97}`.
func normalizeQuotes(obj string) string {
	obj = strings.ReplaceAll(obj, "'", `"`)
	obj = strings.ReplaceAll(obj, "%", "")
	return obj
}

// PercentField extracts the named field from model output and canonicalizes
// it to a percentage string like "87%". The field may arrive as a JSON
// number or a string, with or without a trailing percent sign.
func PercentField(stage, raw, field string) (string, error) {
	obj, ok := FirstJSONObject(raw)
	if !ok {
		return "", &model.ParseError{Stage: stage, Raw: raw, Err: fmt.Errorf("no JSON object found")}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(normalizeQuotes(obj)), &parsed); err != nil {
		return "", &model.ParseError{Stage: stage, Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	value, ok := parsed[field]
	if !ok {
		return "", &model.ParseError{Stage: stage, Raw: raw, Err: fmt.Errorf("missing field %q", field)}
	}

	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64) + "%", nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", &model.ParseError{Stage: stage, Raw: raw, Err: fmt.Errorf("empty %q value", field)}
		}
		if _, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err != nil {
			return "", &model.ParseError{Stage: stage, Raw: raw, Err: fmt.Errorf("non-numeric %q value %q", field, v)}
		}
		if !strings.HasSuffix(s, "%") {
			s += "%"
		}
		return s, nil
	default:
		return "", &model.ParseError{Stage: stage, Raw: raw, Err: fmt.Errorf("field %q is neither number nor string", field)}
	}
}

// ParsePercent parses a canonical percentage string back to its float value
func ParsePercent(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
}

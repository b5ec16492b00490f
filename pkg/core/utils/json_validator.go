package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Tier names the parsing strategy that produced a value.
type Tier string

const (
	TierStrict   Tier = "strict"
	TierRepaired Tier = "repaired"
	TierHJSON    Tier = "hjson"
)

// Decoded is the outcome of decoding model output: either a parsed value or
// the raw text with the reason it could not be parsed. Callers must check
// Parsed before using Value. Tier is empty when nothing parsed.
type Decoded[T any] struct {
	value  T
	ok     bool
	Raw    string
	Reason string
	Tier   Tier
}

// Parsed returns the decoded value and true, or the zero value and false.
func (d Decoded[T]) Parsed() (T, bool) {
	return d.value, d.ok
}

// Strict reports whether the value decoded as standard JSON without repair.
func (d Decoded[T]) Strict() bool {
	return d.ok && d.Tier == TierStrict
}

func parsed[T any](v T, raw string, tier Tier) Decoded[T] {
	return Decoded[T]{value: v, ok: true, Raw: raw, Tier: tier}
}

func unparsed[T any](raw, reason string) Decoded[T] {
	return Decoded[T]{Raw: raw, Reason: reason}
}

// DecodeLLMJSON decodes a JSON object embedded in free-form model output.
// Code fences are stripped, the outermost {...} span is sliced out, and the
// span is parsed strictly, then after json-repair, then as Hjson.
func DecodeLLMJSON[T any](raw string) Decoded[T] {
	span, ok := ExtractJSONObject(StripCodeFence(raw))
	if !ok {
		return unparsed[T](raw, "no JSON object found")
	}

	var v T
	_, tier, err := smartParse(span, &v)
	if err != nil {
		return unparsed[T](raw, err.Error())
	}
	return parsed(v, raw, tier)
}

// StripCodeFence unwraps a ```json fenced block, or failing that a generic
// ``` block. Text without fences is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	for _, open := range []string{"```json", "```"} {
		start := strings.Index(s, open)
		if start < 0 {
			continue
		}
		body := s[start+len(open):]
		if end := strings.LastIndex(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}
	return s
}

// ExtractJSONObject slices from the first '{' to the last '}'.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// RepairJSON attempts to fix common JSON errors from LLM outputs: unquoted
// keys, single quotes, trailing commas, comments and unclosed containers.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return string(jsonBytes), nil
}

// SmartParse tries multiple parsing strategies and returns the JSON text
// that finally decoded into target.
// Order of attempts:
// 1. Standard JSON parse
// 2. JSON repair
// 3. Hjson parse (most lenient)
func SmartParse(input string, target interface{}) (string, error) {
	out, _, err := smartParse(input, target)
	return out, err
}

func smartParse(input string, target interface{}) (string, Tier, error) {
	if err := json.Unmarshal([]byte(input), target); err == nil {
		return input, TierStrict, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return repaired, TierRepaired, nil
		}
	}

	if converted, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(converted), target); err == nil {
			return converted, TierHJSON, nil
		}
	}

	return "", "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}

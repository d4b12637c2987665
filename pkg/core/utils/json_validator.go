package utils

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/rotisserie/eris"
)

// RepairJSON attempts to fix common JSON errors from LLM outputs:
// unquoted keys, single quotes, unclosed brackets, trailing commas,
// comments and Python-style literals.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", eris.Wrap(err, "json repair failed")
	}
	return repaired, nil
}

// LooksLikeJSON reports whether s starts like a JSON object or array.
func LooksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// ParseHJSON parses Human-friendly JSON (comments, unquoted keys and
// strings, optional commas, multiline strings) and returns standard JSON.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", eris.Wrap(err, "hjson parse failed")
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", eris.Wrap(err, "json marshal failed")
	}
	return string(jsonBytes), nil
}

// SmartParse tries, in order, standard JSON, JSON repair and Hjson to
// decode input into target. It returns the JSON text that decoded.
func SmartParse(input string, target interface{}) (string, error) {
	input = StripCodeFences(input)

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return input, nil
	}

	if LooksLikeJSON(input) {
		if repaired, err := RepairJSON(input); err == nil {
			if err := json.Unmarshal([]byte(repaired), target); err == nil {
				return repaired, nil
			}
		}
	}

	if converted, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(converted), target); err == nil {
			return converted, nil
		}
	}

	return "", eris.New("smart parse failed: all parsing strategies failed for input")
}

package extract

import (
	"encoding/json"
	"errors"
	"strings"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/utils"
)

// ParseResponse cleans a model reply and normalizes it to a sequence of
// objects. A single object becomes a one-element sequence.
func ParseResponse(raw string) ([]map[string]interface{}, error) {
	text := utils.StripCodeFences(raw)
	if text == "" {
		return nil, apperr.MalformedResponse(raw, errors.New("empty reply"))
	}
	// The schema prompts tell the model to answer "Error: ..." when the
	// document has no statement of the requested kind.
	if strings.HasPrefix(strings.ToLower(text), "error:") {
		return nil, apperr.UnsupportedShape(text, "model reported: %s", apperr.Truncate(text, 200))
	}

	v, err := decode(text)
	if err != nil {
		return nil, apperr.MalformedResponse(raw, err)
	}

	// A JSON string holding JSON is unwrapped once.
	if s, ok := v.(string); ok && utils.LooksLikeJSON(s) {
		if inner, err := decode(s); err == nil {
			v = inner
		}
	}

	switch t := v.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{t}, nil
	case []interface{}:
		if len(t) == 0 {
			return nil, apperr.UnsupportedShape(text, "empty array")
		}
		out := make([]map[string]interface{}, 0, len(t))
		for i, item := range t {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, apperr.UnsupportedShape(text, "array element %d is %s, not an object", i, jsonType(item))
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, apperr.UnsupportedShape(text, "reply is a JSON %s", jsonType(v))
	}
}

// decode parses strictly, then tries one repair when the text at least
// starts like JSON.
func decode(text string) (interface{}, error) {
	var v interface{}
	err := json.Unmarshal([]byte(text), &v)
	if err == nil {
		return v, nil
	}
	if !utils.LooksLikeJSON(text) {
		return nil, err
	}
	repaired, rerr := utils.RepairJSON(text)
	if rerr != nil {
		return nil, err
	}
	if rerr = json.Unmarshal([]byte(repaired), &v); rerr != nil {
		return nil, err
	}
	return v, nil
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	}
	return "value"
}

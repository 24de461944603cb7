package modelrelay

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
)

// ParseToolArguments parses a tool call's argument string into a map.
// Streamed arguments are frequently truncated or sloppily quoted, so when
// standard parsing fails the input is run through jsonrepair before a second
// attempt. Returns an empty map for empty input.
func ParseToolArguments(arguments string) (map[string]any, error) {
	if arguments == "" {
		return map[string]any{}, nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(arguments), &result); err == nil {
		return result, nil
	}

	repaired, err := jsonrepair.JSONRepair(arguments)
	if err != nil {
		return nil, NewValidationError("tool arguments are not valid JSON: " + err.Error())
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return nil, NewValidationError("tool arguments are not valid JSON: " + err.Error())
	}
	return result, nil
}

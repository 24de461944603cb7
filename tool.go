package modelrelay

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// toolReflector generates parameter schemas for tool declarations.
// DoNotReference inlines all definitions because most providers reject $ref
// inside tool parameter schemas.
var toolReflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// ToolFor builds a Tool whose parameter schema is reflected from a Go struct
// type. The type should carry json and jsonschema tags:
//
//	type WeatherArgs struct {
//	    City string `json:"city" jsonschema:"required,description=City name"`
//	    Unit string `json:"unit,omitempty"`
//	}
//
//	tool, err := modelrelay.ToolFor[WeatherArgs]("get_weather", "Look up current weather")
func ToolFor[T any](name, description string) (Tool, error) {
	var zero T
	schema := toolReflector.Reflect(&zero)

	data, err := json.Marshal(schema)
	if err != nil {
		return Tool{}, NewErrorWithCause(ErrorTypeInternal, "marshal tool schema", err)
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return Tool{}, NewErrorWithCause(ErrorTypeInternal, "decode tool schema", err)
	}

	return Tool{Name: name, Description: description, Parameters: params}, nil
}

// MustToolFor is like ToolFor but panics on error. Useful for package-level
// tool declarations.
func MustToolFor[T any](name, description string) Tool {
	tool, err := ToolFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return tool
}

package modelrelay

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema document paths, versioned alongside SchemaVersion.
const (
	requestSchemaPath  = "schemas/canonical-request.v1.json"
	responseSchemaPath = "schemas/canonical-response.v1.json"
	streamSchemaPath   = "schemas/canonical-stream-event.v1.json"
)

// ValidationResult is the discriminated outcome of validating arbitrary
// JSON-like input: either Valid with typed Data, or a sequence of
// human-readable path+message strings. Validation never panics for malformed
// input.
type ValidationResult[T any] struct {
	Valid  bool
	Data   *T
	Errors []string
}

func invalid[T any](errs ...string) ValidationResult[T] {
	return ValidationResult[T]{Errors: errs}
}

// Validator checks payloads against the canonical schema documents. The
// documents are loaded and resolved once at construction; they are used
// purely for validation, not for code generation.
type Validator struct {
	request  *jsonschema.Resolved
	response *jsonschema.Resolved
	stream   *jsonschema.Resolved
}

// NewValidator loads and resolves the canonical schema documents. It panics
// if the schema definitions themselves fail to load: that is a fatal
// configuration error, since the gateway cannot safely operate without them.
func NewValidator() *Validator {
	return &Validator{
		request:  mustResolve(requestSchemaPath),
		response: mustResolve(responseSchemaPath),
		stream:   mustResolve(streamSchemaPath),
	}
}

func mustResolve(path string) *jsonschema.Resolved {
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("modelrelay: read schema %s: %v", path, err))
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		panic(fmt.Sprintf("modelrelay: parse schema %s: %v", path, err))
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("modelrelay: resolve schema %s: %v", path, err))
	}
	return resolved
}

// SchemaDocument returns the raw schema document for external consumers
// (dashboard, docs). name is one of "request", "response", "stream".
func SchemaDocument(name string) (json.RawMessage, error) {
	var path string
	switch name {
	case "request":
		path = requestSchemaPath
	case "response":
		path = responseSchemaPath
	case "stream":
		path = streamSchemaPath
	default:
		return nil, NewConfigurationError(fmt.Sprintf("unknown schema document '%s'", name))
	}
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		return nil, NewConfigurationError(err.Error())
	}
	return data, nil
}

// ValidateRequest validates a canonical request payload.
func (v *Validator) ValidateRequest(raw []byte) ValidationResult[CanonicalRequest] {
	instance, errs := decodeInstance(raw)
	if len(errs) > 0 {
		return invalid[CanonicalRequest](errs...)
	}

	errs = append(errs, requestShapeErrors(instance)...)
	errs = append(errs, schemaErrors(v.request, instance)...)
	if len(errs) > 0 {
		return invalid[CanonicalRequest](dedupe(errs)...)
	}

	var req CanonicalRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return invalid[CanonicalRequest]("request: " + err.Error())
	}
	return ValidationResult[CanonicalRequest]{Valid: true, Data: &req}
}

// ValidateResponse validates a canonical response payload.
func (v *Validator) ValidateResponse(raw []byte) ValidationResult[CanonicalResponse] {
	instance, errs := decodeInstance(raw)
	if len(errs) > 0 {
		return invalid[CanonicalResponse](errs...)
	}

	errs = append(errs, schemaErrors(v.response, instance)...)
	if len(errs) > 0 {
		return invalid[CanonicalResponse](dedupe(errs)...)
	}

	var resp CanonicalResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return invalid[CanonicalResponse]("response: " + err.Error())
	}
	return ValidationResult[CanonicalResponse]{Valid: true, Data: &resp}
}

// ValidateStreamEvent validates one canonical streaming event payload.
func (v *Validator) ValidateStreamEvent(raw []byte) ValidationResult[CanonicalStreamEvent] {
	instance, errs := decodeInstance(raw)
	if len(errs) > 0 {
		return invalid[CanonicalStreamEvent](errs...)
	}

	errs = append(errs, schemaErrors(v.stream, instance)...)
	if len(errs) > 0 {
		return invalid[CanonicalStreamEvent](dedupe(errs)...)
	}

	var ev CanonicalStreamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return invalid[CanonicalStreamEvent]("event: " + err.Error())
	}
	return ValidationResult[CanonicalStreamEvent]{Valid: true, Data: &ev}
}

func decodeInstance(raw []byte) (map[string]any, []string) {
	var instance map[string]any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, []string{"payload: not a JSON object: " + err.Error()}
	}
	return instance, nil
}

// requestShapeErrors produces per-field path+message errors for the request
// invariants clients trip over most, so a bad payload reports every problem
// at once rather than only the first schema violation.
func requestShapeErrors(instance map[string]any) []string {
	var errs []string

	if s, _ := instance["schema_version"].(string); s == "" {
		errs = append(errs, "schema_version: required and must be a non-empty string")
	}
	if s, _ := instance["model"].(string); s == "" {
		errs = append(errs, "model: required and must be a non-empty string")
	}

	messages, ok := instance["messages"].([]any)
	if !ok || len(messages) == 0 {
		errs = append(errs, "messages: required and must be a non-empty array")
		return errs
	}
	for i, m := range messages {
		msg, ok := m.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("messages[%d]: must be an object", i))
			continue
		}
		switch role, _ := msg["role"].(string); Role(role) {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			errs = append(errs, fmt.Sprintf("messages[%d].role: must be one of system, user, assistant", i))
		}
		if content, ok := msg["content"].([]any); !ok || len(content) == 0 {
			errs = append(errs, fmt.Sprintf("messages[%d].content: must be a non-empty array of content blocks", i))
		}
	}

	return errs
}

func schemaErrors(resolved *jsonschema.Resolved, instance map[string]any) []string {
	if err := resolved.Validate(instance); err != nil {
		return []string{err.Error()}
	}
	return nil
}

func dedupe(errs []string) []string {
	seen := make(map[string]bool, len(errs))
	out := errs[:0]
	for _, e := range errs {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

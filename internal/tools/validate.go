package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists the schema violations of a tool call.
type ValidationError struct {
	Tool     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid arguments for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

// ParseArguments decodes the raw argument text of a tool call. Empty text
// counts as an empty object.
func ParseArguments(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	// null stands for an omitted optional argument
	for k, v := range args {
		if v == nil {
			delete(args, k)
		}
	}
	return args, nil
}

// Validate checks args against the tool's parameter schema.
func (t *Tool) Validate(args map[string]interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(t.Definition.Function.Parameters),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ValidationError{Tool: t.Name(), Problems: problems}
}

// Normalize returns a copy of args with the tool's defaults filled in.
func (t *Tool) Normalize(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args)+len(t.Defaults))
	for k, v := range t.Defaults {
		out[k] = v
	}
	for k, v := range args {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// decodeArgs maps args onto a typed struct through JSON.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

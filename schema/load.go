package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed descriptor.schema.json
var descriptorSchema []byte

// DescriptorError lists every JSON schema violation of a descriptor file.
type DescriptorError struct {
	Violations []Violation
}

// Violation is one failed schema rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *DescriptorError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "schema: invalid descriptor: " + strings.Join(msgs, "; ")
}

type descriptor struct {
	Entities []Entity `json:"entities"`
}

// Load validates a JSON descriptor document and builds its Registry.
func Load(data []byte) (*Registry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(descriptorSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema: validate descriptor: %w", err)
	}
	if !result.Valid() {
		violations := make([]Violation, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, Violation{Field: desc.Field(), Message: desc.Description()})
		}
		return nil, &DescriptorError{Violations: violations}
	}

	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("schema: decode descriptor: %w", err)
	}
	return New(d.Entities...)
}

// LoadFile reads and loads a JSON descriptor file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return Load(data)
}

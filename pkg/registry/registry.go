// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"oikos-server/internal/wizard"
)

// LoadRegistry reads and validates the wizard flow definitions. The file is
// schema-checked before unmarshalling so a malformed definition fails startup
// instead of surfacing as a broken wizard at runtime.
func LoadRegistry(path string) (*FlowRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var document interface{}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("flow registry is not valid JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(flowSchema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("flow registry validation error: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("flow registry failed schema validation: %s", strings.Join(details, "; "))
	}

	var reg FlowRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(reg.Flows))
	for _, flow := range reg.Flows {
		if seen[flow.Name] {
			return nil, fmt.Errorf("duplicate flow definition: %s", flow.Name)
		}
		seen[flow.Name] = true
	}

	return &reg, nil
}

// Get returns the named flow definition, or nil when unregistered.
func (r *FlowRegistry) Get(name string) *wizard.FlowDefinition {
	for i := range r.Flows {
		if r.Flows[i].Name == name {
			return &r.Flows[i]
		}
	}
	return nil
}

// Names lists the registered flow names in file order.
func (r *FlowRegistry) Names() []string {
	names := make([]string, 0, len(r.Flows))
	for _, flow := range r.Flows {
		names = append(names, flow.Name)
	}
	return names
}

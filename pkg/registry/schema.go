// pkg/registry/schema.go
package registry

import "oikos-server/internal/wizard"

type FlowRegistry struct {
	Version     string                  `json:"version"`
	LastUpdated string                  `json:"lastUpdated"`
	Flows       []wizard.FlowDefinition `json:"flows"`
}

// flowSchema is the structural contract every flows.json must satisfy before
// any definition is handed to the wizard engine.
var flowSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"version", "flows"},
	"properties": map[string]interface{}{
		"version":     map[string]interface{}{"type": "string"},
		"lastUpdated": map[string]interface{}{"type": "string"},
		"flows": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"name", "title", "steps"},
				"properties": map[string]interface{}{
					"name":  map[string]interface{}{"type": "string", "minLength": 1},
					"title": map[string]interface{}{"type": "string"},
					"steps": map[string]interface{}{
						"type":     "array",
						"minItems": 1,
						"items": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"name"},
							"properties": map[string]interface{}{
								"name":  map[string]interface{}{"type": "string", "minLength": 1},
								"title": map[string]interface{}{"type": "string"},
								"rules": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type":     "object",
										"required": []interface{}{"field", "type"},
										"properties": map[string]interface{}{
											"field":   map[string]interface{}{"type": "string", "minLength": 1},
											"type":    map[string]interface{}{"type": "string"},
											"param":   map[string]interface{}{"type": "string"},
											"message": map[string]interface{}{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	},
}

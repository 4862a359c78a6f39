// pkg/registry/schema.go
package registry

// TemplateRegistry is the on-disk seed of system-default templates, one
// per notification category.
type TemplateRegistry struct {
	Version     string         `json:"version"`
	LastUpdated string         `json:"lastUpdated"`
	Templates   []SeedTemplate `json:"templates"`
}

// SeedTemplate is one seeded default. Category must name a known
// notification category; subject and body use the same placeholder tags as
// stored templates.
type SeedTemplate struct {
	Category string `json:"category"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// registrySchema is the JSON Schema the seed file is validated against
// before any template reaches the store.
var registrySchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"version", "templates"},
	"properties": map[string]interface{}{
		"version":     map[string]interface{}{"type": "string"},
		"lastUpdated": map[string]interface{}{"type": "string"},
		"templates": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"category", "subject", "body"},
				"properties": map[string]interface{}{
					"category": map[string]interface{}{"type": "string", "minLength": 1},
					"subject":  map[string]interface{}{"type": "string", "minLength": 1},
					"body":     map[string]interface{}{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

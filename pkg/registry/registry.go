// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/models"
)

// LoadRegistry reads, schema-validates and decodes the template seed file.
func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if err := reg.checkCategories(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func validateDocument(data []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(registrySchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return apperrors.NewSeedRegistryInvalidError(fmt.Sprintf("%v", errs))
	}

	return nil
}

// checkCategories rejects seeds naming unknown categories and duplicate
// entries for the same category.
func (r *TemplateRegistry) checkCategories() error {
	seen := make(map[string]bool, len(r.Templates))
	for _, t := range r.Templates {
		if !models.Category(t.Category).Valid() {
			return apperrors.NewSeedRegistryInvalidError(fmt.Sprintf("unknown category %q", t.Category))
		}
		if seen[t.Category] {
			return apperrors.NewSeedRegistryInvalidError(fmt.Sprintf("duplicate category %q", t.Category))
		}
		seen[t.Category] = true
	}
	return nil
}

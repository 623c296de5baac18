package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/opsdesk/pkg/models"
)

// ValidateActionConfig validates an operator-supplied action configuration
// against the factory's JSON schema. Validation happens at workflow-edit
// time only; execution stays permissive and reads whatever fields it needs.
func (r *Registry) ValidateActionConfig(actionType string, config models.Document) error {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotRegistered, actionType)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = models.Document{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(map[string]any(config)),
	)
	if err != nil {
		return fmt.Errorf("failed to validate action config: %w", err)
	}

	if !result.Valid() {
		message := fmt.Sprintf("invalid configuration for action %s:", actionType)
		for _, desc := range result.Errors() {
			message += " " + desc.String() + ";"
		}

		return fmt.Errorf("%s", message)
	}

	return nil
}

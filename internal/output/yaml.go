package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/anvil/internal/clone"
)

// YAMLFormatter formats a clone summary as YAML.
type YAMLFormatter struct{}

// FormatResult formats a completed clone run as a YAML document.
func (f *YAMLFormatter) FormatResult(r *clone.Result) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to YAML: %w", err)
	}
	return string(data), nil
}

package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/anvil/internal/clone"
)

// JSONFormatter formats a clone summary as JSON.
type JSONFormatter struct{}

// FormatResult formats a completed clone run as indented JSON.
func (f *JSONFormatter) FormatResult(r *clone.Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to JSON: %w", err)
	}
	return string(data) + "\n", nil
}

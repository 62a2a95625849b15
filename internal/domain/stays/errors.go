package stays

import "fmt"

// ValidationError reports bad filter or form input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stays: invalid %s: %s", e.Field, e.Reason)
}

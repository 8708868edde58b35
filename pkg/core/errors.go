package core

import "fmt"

// ValidationError indicates malformed input: a bad selection pattern or a
// missing project directory.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return "validation: " + e.Message
}

// ContextDirError indicates that the artifact directory is in the wrong
// state for the requested operation: it already exists on build without
// force, or is missing on update.
type ContextDirError struct {
	Dir     string
	Message string
}

func (e *ContextDirError) Error() string {
	return fmt.Sprintf("context directory %s: %s", e.Dir, e.Message)
}

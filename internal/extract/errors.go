// internal/extract/errors.go
package extract

import "fmt"

// ConfigurationError reports invalid extraction inputs (empty registry,
// unknown mode, confidence out of range). It is raised before any text is
// processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("extraction configuration invalid: %s: %s", e.Field, e.Reason)
}

// ExtractionDependencyError reports that the LLM path was required but the
// delegate was missing, errored, or timed out. The extraction core never
// retries; retry policy belongs to the delegate itself.
type ExtractionDependencyError struct {
	Reason string
	Err    error
}

func (e *ExtractionDependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction dependency failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction dependency failed: %s", e.Reason)
}

func (e *ExtractionDependencyError) Unwrap() error { return e.Err }

// MalformedResponseError reports that the delegate returned data that does
// not validate against the mention schema. The whole delegate result is
// discarded; nothing malformed reaches the core data model.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed delegate response: %s", e.Reason)
}

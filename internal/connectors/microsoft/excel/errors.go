package excel

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid configuration fields.
// All missing fields are reported together.
type ConfigurationError struct {
	// Missing lists every required field that was absent or empty.
	Missing []string
	// Field and Reason describe a single invalid value.
	Field  string
	Reason string
	// Hint prefixes the list of missing fields.
	Hint string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
	}
	hint := e.Hint
	if hint == "" {
		hint = "missing required configuration"
	}
	return hint + ": " + strings.Join(e.Missing, ", ")
}

// ResolutionError reports a SharePoint site, drive or drive item that could not
// be found after every candidate was tried.
type ResolutionError struct {
	Resource   string
	Target     string
	Candidates []string
	Err        error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not resolve %s for %s", e.Resource, e.Target)
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, " (tried %s)", strings.Join(e.Candidates, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error { return e.Err }

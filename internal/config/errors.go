package config

import "fmt"

// LoadError is a structured error describing why a FleetConfig failed to
// load or validate, carrying enough context for an operator to fix the
// file without re-reading the loader's source.
type LoadError struct {
	File        string   // path to the config file that caused the error
	Category    string   // "runtime", "sites", "listener", "service", "parse"
	Message     string   // human-readable description
	Suggestions []string // actionable fixes
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.File, e.Message)
}

// DetailedError renders the error plus its suggestions, for CLI output.
func (e *LoadError) DetailedError() string {
	s := e.Error()
	for _, sug := range e.Suggestions {
		s += fmt.Sprintf("\n  - %s", sug)
	}
	return s
}

// LoadErrors collects every LoadError found during a single Validate call,
// so an operator sees every problem in a config at once rather than fixing
// them one at a time.
type LoadErrors []*LoadError

func (es LoadErrors) Error() string {
	if len(es) == 0 {
		return "no configuration errors"
	}
	if len(es) == 1 {
		return es[0].Error()
	}
	return fmt.Sprintf("%d configuration errors: %s (and %d more)", len(es), es[0].Error(), len(es)-1)
}

func (es *LoadErrors) add(category, file, message string, suggestions ...string) {
	*es = append(*es, &LoadError{File: file, Category: category, Message: message, Suggestions: suggestions})
}

package report

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when the dashboard document lacks a field
	// every panel or dashboard must carry.
	ErrMissingField = errors.New("missing required field")

	// ErrUndefinedVariable is returned when a title references a variable that
	// is neither scoped to the panel nor defined on the dashboard.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrDuplicatePanel is returned when two panels share an id.
	ErrDuplicatePanel = errors.New("duplicate panel id")

	// ErrRowPanel is returned when an image is requested for a row.
	ErrRowPanel = errors.New("row panels have no image")

	// ErrOutputExists is returned when the report directory is already there.
	ErrOutputExists = errors.New("output directory already exists")
)

// ParseError names the field that could not be read from the dashboard document.
type ParseError struct {
	Field   string
	PanelID int64
}

func (e *ParseError) Error() string {
	if e.PanelID != 0 {
		return fmt.Sprintf("panel %d: %s: %q", e.PanelID, ErrMissingField, e.Field)
	}
	return fmt.Sprintf("%s: %q", ErrMissingField, e.Field)
}

func (e *ParseError) Unwrap() error {
	return ErrMissingField
}

// UndefinedVariableError is the failed outcome of variable substitution.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("%s: $%s", ErrUndefinedVariable, e.Name)
}

func (e *UndefinedVariableError) Unwrap() error {
	return ErrUndefinedVariable
}

package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already added")
	ErrNotPresent         = errors.New("not present")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrUnauthenticated    = errors.New("authentication credentials were not provided")
)

const blankMessage = "This field may not be blank."

// ValidationError collects per-field messages
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an error holding a single field message
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Err returns nil when no field has been flagged
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// translateError maps storage errors onto the service error set
func translateError(err error, what string) error {
	if err == nil {
		return nil
	}
	var fe *models.FieldError
	switch {
	case errors.As(err, &fe):
		return NewValidationError(fe.Field, fe.Message)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(what)
	}
	return err
}

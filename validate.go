package stocked

import (
	"fmt"
	"reflect"
)

// Validator is implemented by trees that can check their own consistency.
type Validator interface {
	Validate() error
}

// WithValidation makes every write (SetValue, Update, SetValues and
// ResetValues) reject a resulting tree that fails Validate. The rejected tree
// is never published and observers are not notified.
func WithValidation() Option {
	return func(cfg *stockConfig) {
		cfg.validate = true
	}
}

// Validate runs the current tree's Validate method when it has one.
func (s *Stock[T]) Validate() error {
	return validateValue(s.values)
}

func validateValue[T any](value T) error {
	if v, ok := any(value).(Validator); ok {
		return v.Validate()
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() == reflect.Pointer {
		return nil
	}
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	if v, ok := ptr.Interface().(Validator); ok {
		return v.Validate()
	}
	return nil
}

func (s *Stock[T]) checkTree(tree T) error {
	if !s.cfg.validate {
		return nil
	}
	if err := validateValue(tree); err != nil {
		return fmt.Errorf("stocked: validation failed: %w", err)
	}
	return nil
}

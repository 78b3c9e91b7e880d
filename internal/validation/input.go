package validation

import (
	"errors"
	"fmt"
)

// InputError collects validation messages per request field.
type InputError struct {
	fields map[string][]string
}

func NewInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputError *InputError

	if errors.As(err, &inputError) {
		return inputError
	}

	return nil
}

func (ie *InputError) AddError(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) FieldsCount() int {
	return len(ie.fields)
}

// Err returns ie when any field failed, else nil.
func (ie *InputError) Err() error {
	if ie.FieldsCount() == 0 {
		return nil
	}

	return ie
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("%+v", ie.fields)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}

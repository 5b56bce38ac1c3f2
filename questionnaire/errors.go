package questionnaire

import (
	"fmt"

	"github.com/pkg/errors"
)

// SchemaError reports a questionnaire source that could not be fetched or understood.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %s", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// DecodeError reports a stored field key that does not resolve against the numbered questions.
// Encoder and decoder have drifted apart when this shows up.
type DecodeError struct {
	Code   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s", e.Code, e.Reason)
}

var ErrNotEligible = errors.New("respondent not eligible")

// EligibilityError names the admission rule a respondent failed.
type EligibilityError struct {
	Directive string
	Reason    string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Directive, e.Reason)
}

func (e *EligibilityError) Is(target error) bool {
	return target == ErrNotEligible
}

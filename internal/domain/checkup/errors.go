package checkup

import "fmt"

// ValidationError marks user-correctable input problems.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks an unknown case or code id. Callers recover from
// it on analyze by re-running start and resubmitting.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func notFoundErrorf(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError marks an operation invoked out of stage order.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

func preconditionErrorf(format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// GenerationError marks a text-generation failure, timeout, or empty
// output. Case state is never mutated when one is returned.
type GenerationError struct {
	Msg string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

func generationError(msg string, err error) *GenerationError {
	return &GenerationError{Msg: msg, Err: err}
}

// StoreError marks persistence failures. The caller decides whether to
// retry.
type StoreError struct {
	Msg string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeError(msg string, err error) *StoreError {
	return &StoreError{Msg: msg, Err: err}
}

package contract

import "errors"

var (
	// ErrClassification: the model could not produce a well-formed Intent.
	ErrClassification = errors.New("intent classification failed")
	// ErrSchemaViolation: the model produced output outside the closed shape.
	ErrSchemaViolation = errors.New("model response violates schema")
	// ErrToolFailed: a dispatched tool raised instead of returning a status.
	ErrToolFailed = errors.New("tool execution failed")
	// ErrHandoffValidation: malformed email at ticket-creation time.
	ErrHandoffValidation = errors.New("handoff validation failed")
	// ErrTimeout: an external call (model or tool) exceeded its deadline.
	ErrTimeout = errors.New("external call timed out")
	// ErrValidation: invalid input or inconsistent internal state.
	ErrValidation = errors.New("validation failed")
)

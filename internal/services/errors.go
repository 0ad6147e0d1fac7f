package services

import (
	"errors"
	"fmt"

	apperrors "github.com/quizforge/quiz-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Quiz specific errors
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizInvalid      = errors.New("quiz definition failed validation")
	ErrQuizMalformed    = errors.New("quiz definition is not a JSON object")
	ErrQuizNotEditable  = errors.New("quiz cannot be edited in current status")
	ErrQuizNotPublished = errors.New("quiz is not published")

	// Session specific errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotActive   = errors.New("session has no active question")
	ErrSessionNotEnded    = errors.New("session has not reached a terminal state")
	ErrDuplicateSession   = errors.New("session id already in use")
	ErrUnknownQuestionID  = errors.New("session references an unknown question")
	ErrInvalidAnswerValue = errors.New("answer value not valid for the current question")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// QuizRejectedError carries the validator report for a rejected definition.
type QuizRejectedError struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

func (e *QuizRejectedError) Error() string {
	return fmt.Sprintf("quiz definition rejected: %d error(s)", len(e.Errors))
}

func (e *QuizRejectedError) Unwrap() error {
	return ErrQuizInvalid
}

// BusinessRuleError reports a lifecycle rule the caller tried to break.
// It unwraps to the sentinel for the violated rule so handler mappings
// keep working.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Err     error                  `json:"-"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func (bre *BusinessRuleError) Unwrap() error {
	return bre.Err
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, sentinel error, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
		Err:     sentinel,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidAnswerValue) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsQuizRejected checks if error carries a validation report
func IsQuizRejected(err error) bool {
	var qre *QuizRejectedError
	return errors.As(err, &qre)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicateSession) ||
		errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrSessionNotEnded)
}

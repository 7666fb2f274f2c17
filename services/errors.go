package services

import (
	"errors"
	"fmt"
	"time"
)

// Code is the stable outcome code of a comment submission.
type Code string

const (
	CodeOK              Code = "OK"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeValidationError Code = "VALIDATION_ERROR"
	CodePostNotFound    Code = "POST_NOT_FOUND"
	CodeContentRejected Code = "CONTENT_REJECTED"
	CodeInternalError   Code = "INTERNAL_ERROR"
)

// FieldError describes one failed input constraint.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Rejection is returned by Submit for every non-OK outcome.
type Rejection struct {
	Code    Code
	Message string
	// Fields is set for CodeValidationError.
	Fields []FieldError
	// RetryAfter and Remaining are set for CodeRateLimited.
	RetryAfter time.Duration
	Remaining  int

	cause error
}

func (r *Rejection) Error() string {
	if r.cause != nil {
		return fmt.Sprintf("%s: %s: %v", r.Code, r.Message, r.cause)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func (r *Rejection) Unwrap() error { return r.cause }

// RejectionCode maps err to its outcome code. Errors that are not rejections are internal.
func RejectionCode(err error) Code {
	if err == nil {
		return CodeOK
	}
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return CodeInternalError
}

func internalError(cause error) *Rejection {
	return &Rejection{Code: CodeInternalError, Message: "failed to submit comment, please try again later", cause: cause}
}

var (
	ErrCommentNotFound   = errors.New("comment not found")
	ErrInvalidTransition = errors.New("invalid comment status transition")
	ErrEmptySelection    = errors.New("no comments selected")
	ErrInvalidAction     = errors.New("invalid batch action")
)

package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes used across the application. The HTTP boundary maps each
// code to a status; see server.statusForError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInvalidState     = "INVALID_STATE"
	CodeSelfJoin         = "SELF_JOIN"
	CodeAlreadyJoined    = "ALREADY_JOINED"
	CodeNotJoined        = "NOT_JOINED"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeAssetUpload      = "ASSET_UPLOAD_FAILED"
	CodeConcurrency      = "CONCURRENCY_CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError represents a custom application error.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewInvalidStateError(message string) *AppError {
	return &AppError{Code: CodeInvalidState, Message: message}
}

func NewSelfJoinError() *AppError {
	return &AppError{Code: CodeSelfJoin, Message: "Cannot join your own event"}
}

func NewAlreadyJoinedError() *AppError {
	return &AppError{Code: CodeAlreadyJoined, Message: "Already joined this event"}
}

func NewNotJoinedError() *AppError {
	return &AppError{Code: CodeNotJoined, Message: "Not joined this event"}
}

func NewCapacityExceededError() *AppError {
	return &AppError{Code: CodeCapacityExceeded, Message: "Event is full"}
}

func NewAssetUploadError(err error) *AppError {
	return &AppError{Code: CodeAssetUpload, Message: "Error uploading image", Err: err}
}

func NewConcurrencyError(message string) *AppError {
	return &AppError{Code: CodeConcurrency, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// RespondWithError writes the standard {success:false, message} envelope.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	message := "Internal server error"
	if appErr, ok := err.(*AppError); ok {
		message = appErr.Message
	} else if err != nil {
		message = err.Error()
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

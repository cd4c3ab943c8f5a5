// Package businessflow contains the core business logic and use cases for the disclosure portal
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound              = errors.New("user not found")
	ErrAccountNotActive          = errors.New("account is not active")
	ErrInvalidCredentials        = errors.New("invalid email or password")
	ErrEmailAlreadyExists        = errors.New("email already exists")
	ErrCaptchaFailed             = errors.New("captcha verification failed")
	ErrDisclaimerNotAccepted     = errors.New("disclaimer must be accepted first")
	ErrDisclaimerAlreadyAccepted = errors.New("disclaimer already accepted")
	ErrUserNotPending            = errors.New("user is not pending approval")
	ErrForbidden                 = errors.New("operation not permitted")

	// Credit-related errors
	ErrInsufficientCredits     = errors.New("insufficient credits")
	ErrInvalidAdjustmentAmount = errors.New("adjustment amount must not be zero")

	// Submission-related errors
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrSubmissionAccessDenied = errors.New("submission access denied")
	ErrInvalidSubmissionState = errors.New("submission is not in a valid state for this operation")
	ErrReportRendering        = errors.New("failed to render report")
	ErrTitleRequired          = errors.New("submission title is required")
	ErrDescriptionRequired    = errors.New("submission description is required")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountNotActive(err error) bool {
	return errors.Is(err, ErrAccountNotActive)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsCaptchaFailed(err error) bool {
	return errors.Is(err, ErrCaptchaFailed)
}

func IsDisclaimerNotAccepted(err error) bool {
	return errors.Is(err, ErrDisclaimerNotAccepted)
}

func IsDisclaimerAlreadyAccepted(err error) bool {
	return errors.Is(err, ErrDisclaimerAlreadyAccepted)
}

func IsUserNotPending(err error) bool {
	return errors.Is(err, ErrUserNotPending)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsInsufficientCredits(err error) bool {
	return errors.Is(err, ErrInsufficientCredits)
}

func IsInvalidAdjustmentAmount(err error) bool {
	return errors.Is(err, ErrInvalidAdjustmentAmount)
}

func IsSubmissionNotFound(err error) bool {
	return errors.Is(err, ErrSubmissionNotFound)
}

func IsSubmissionAccessDenied(err error) bool {
	return errors.Is(err, ErrSubmissionAccessDenied)
}

func IsInvalidSubmissionState(err error) bool {
	return errors.Is(err, ErrInvalidSubmissionState)
}

func IsReportRendering(err error) bool {
	return errors.Is(err, ErrReportRendering)
}

func IsTitleRequired(err error) bool {
	return errors.Is(err, ErrTitleRequired)
}

func IsDescriptionRequired(err error) bool {
	return errors.Is(err, ErrDescriptionRequired)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

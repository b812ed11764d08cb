package governance

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable governance error code.
type ErrorCode string

const (
	CodeStaleDefaultConflict     ErrorCode = "STALE_DEFAULT_CONFLICT"
	CodeConcurrentChangeConflict ErrorCode = "CONCURRENT_CHANGE_CONFLICT"
	CodeUnknownApprover          ErrorCode = "UNKNOWN_APPROVER"
	CodeAlreadyApproved          ErrorCode = "ALREADY_APPROVED"
	CodeConfirmationMismatch     ErrorCode = "CONFIRMATION_TEXT_MISMATCH"
	CodeSafetyCheckFailed        ErrorCode = "SAFETY_CHECK_FAILED"
	CodeSwapVerificationFailed   ErrorCode = "SWAP_VERIFICATION_FAILED"
	CodeEmergencyRollbackFailed  ErrorCode = "EMERGENCY_ROLLBACK_FAILED"
	CodeInvalidRequestState      ErrorCode = "INVALID_REQUEST_STATE"
)

// ErrRequestNotFound is returned when a change request id does not exist.
var ErrRequestNotFound = errors.New("change request not found")

// GovernanceError is a structured error with a machine-readable code.
// All governance preconditions and state-machine violations surface as this
// type; infrastructure failures propagate as wrapped plain errors.
type GovernanceError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *GovernanceError) Error() string {
	return e.Message
}

// govErr builds a GovernanceError with a formatted message.
func govErr(code ErrorCode, format string, args ...any) *GovernanceError {
	return &GovernanceError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the governance error code from err, or "" if err is not a
// GovernanceError.
func CodeOf(err error) ErrorCode {
	var ge *GovernanceError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

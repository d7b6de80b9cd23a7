package service

import "errors"

// Error kinds. Every concrete ledger error unwraps to exactly one of these.
var (
	ErrAuthorization = errors.New("authorization error")
	ErrValidation    = errors.New("validation error")
	ErrPrecondition  = errors.New("precondition failed")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream error")
	ErrUnavailable   = errors.New("service unavailable")
)

// LedgerError is a user-facing failure with a stable message and a kind
type LedgerError struct {
	Message string
	Kind    error
}

func (e *LedgerError) Error() string {
	return e.Message
}

func (e *LedgerError) Unwrap() error {
	return e.Kind
}

func newLedgerError(kind error, message string) *LedgerError {
	return &LedgerError{Message: message, Kind: kind}
}

var (
	// Authorization
	ErrOutOfScope         = newLedgerError(ErrAuthorization, "You do not have access to this account.")
	ErrRoleNotPermitted   = newLedgerError(ErrAuthorization, "Your role is not permitted to perform this action.")
	ErrInvalidPIN         = newLedgerError(ErrAuthorization, "Invalid PIN.")
	ErrInvalidPassword    = newLedgerError(ErrAuthorization, "Invalid password.")
	ErrInvalidCredentials = newLedgerError(ErrAuthorization, "Invalid username or password.")
	ErrInactiveAccount    = newLedgerError(ErrAuthorization, "Account is inactive.")
	ErrInvalidToken       = newLedgerError(ErrAuthorization, "Invalid token")

	// Validation
	ErrCredentialRequired = newLedgerError(ErrValidation, "PIN or password required.")
	ErrInvalidAmount      = newLedgerError(ErrValidation, "Invalid amount.")
	ErrInvalidRequestKind = newLedgerError(ErrValidation, "Invalid request type.")
	ErrInvalidRole        = newLedgerError(ErrValidation, "Invalid role.")
	ErrUsernameTaken      = newLedgerError(ErrValidation, "Username already exists.")
	ErrUsernameRequired   = newLedgerError(ErrValidation, "Username and password are required.")
	ErrSelfTransfer       = newLedgerError(ErrValidation, "Cannot transfer to yourself.")
	ErrGameUIDRequired    = newLedgerError(ErrValidation, "game_uid is required.")
	ErrRoundRequired      = newLedgerError(ErrValidation, "game_round required")
	ErrInvalidRoundAmount = newLedgerError(ErrValidation, "Invalid parameters")
	ErrPlayerNotFound     = newLedgerError(ErrValidation, "User not found")
	ErrEmptyMessage       = newLedgerError(ErrValidation, "Message cannot be empty.")

	// Precondition
	ErrInsufficientBalance       = newLedgerError(ErrPrecondition, "Insufficient balance.")
	ErrParentInsufficientBalance = newLedgerError(ErrPrecondition, "Parent has insufficient balance")
	ErrMissingParent             = newLedgerError(ErrPrecondition, "User has no parent")
	ErrPaymentMethodNotApproved  = newLedgerError(ErrPrecondition, "No approved payment method on file.")
	ErrInvalidRelationship       = newLedgerError(ErrPrecondition, "Invalid settlement")
	ErrRequestNotPending         = newLedgerError(ErrPrecondition, "Request is not pending.")
	ErrNoDefaultMaster           = newLedgerError(ErrPrecondition, "No default master configured.")

	// Not found
	ErrUserNotFound     = newLedgerError(ErrNotFound, "User not found.")
	ErrRequestNotFound  = newLedgerError(ErrNotFound, "Request not found.")
	ErrAccountNotFound  = newLedgerError(ErrNotFound, "Account not found.")
	ErrSettingsNotFound = newLedgerError(ErrNotFound, "Settings not found.")

	// Upstream and availability
	ErrGameAPINotConfigured = newLedgerError(ErrUnavailable, "Game API not configured.")
	ErrProviderUnavailable  = newLedgerError(ErrUpstream, "Game provider unavailable.")
)

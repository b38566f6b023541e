package xerrors

import (
	"errors"
	"fmt"
)

// Application error taxonomy. Handlers map these onto HTTP statuses; services
// return them wrapped so errors.Is still matches.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal server error")
	ErrRateLimited  = errors.New("too many requests")
	ErrTransientIO  = errors.New("temporary storage failure, retry")

	// Session lifecycle
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrSessionExpired    = errors.New("paused session has expired")
	ErrSessionConflict   = errors.New("a paused session already exists")
	ErrAlreadyResolved   = errors.New("session already left the paused state")

	// Discount ledger, one sentinel per user-displayable rejection
	ErrCodeNotFound          = errors.New("discount code not found or inactive")
	ErrCodeExpired           = errors.New("discount code is outside its validity window")
	ErrCodeNotApplicable     = errors.New("discount code does not apply to this product")
	ErrAlreadyRedeemed       = errors.New("discount code already redeemed by this user")
	ErrMaxRedemptionsReached = errors.New("discount code redemption limit reached")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}

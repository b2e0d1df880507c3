package arbiter

import "fmt"

// Outcome classifies how a claim resolved. Everything except
// OutcomeSuccess surfaces as a ClaimError.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidRequest
	OutcomeVerificationFailed
	OutcomeNotFound
	OutcomeAlreadyResolved
	OutcomeWrongAnswer
	OutcomeLostRace
	OutcomeStoreFailure
	OutcomePayoutFailed
	OutcomeInternalError
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidRequest:
		return "invalid_request"
	case OutcomeVerificationFailed:
		return "verification_failed"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAlreadyResolved:
		return "already_resolved"
	case OutcomeWrongAnswer:
		return "wrong_answer"
	case OutcomeLostRace:
		return "lost_race"
	case OutcomeStoreFailure:
		return "store_failure"
	case OutcomePayoutFailed:
		return "payout_failed"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// ClaimError carries the outcome classification plus a user-facing message.
// Cause holds the underlying fault for logging; it never reaches clients.
type ClaimError struct {
	Outcome Outcome
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ClaimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("claim %s: %s: %v", e.Outcome, e.Message, e.Cause)
	}
	return fmt.Sprintf("claim %s: %s", e.Outcome, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ClaimError) Unwrap() error {
	return e.Cause
}

func newClaimError(outcome Outcome, message string) *ClaimError {
	return &ClaimError{Outcome: outcome, Message: message}
}

// WithCause attaches the underlying fault to the claim error.
func (e *ClaimError) WithCause(cause error) *ClaimError {
	e.Cause = cause
	return e
}

// Package verify abstracts the human-verification collaborator. The claim
// arbiter only consumes a boolean "this submission came from a human".
package verify

import "context"

// Verifier validates a challenge token issued to the browser.
type Verifier interface {
	// VerifyHuman checks the token against the verification service.
	// (false, nil) is an explicit rejection; a non-nil error is a
	// transport or service failure. The arbiter treats both as a failed
	// verification.
	VerifyHuman(ctx context.Context, token, remoteIP string) (bool, error)
}

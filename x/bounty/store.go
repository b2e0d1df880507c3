package bounty

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetByID when no bounty exists for the id.
var ErrNotFound = errors.New("bounty not found")

// Store is the record store contract. ClaimIfOpen must be a single atomic
// server-side conditional update; it is the sole mechanism preventing
// double-claims, so implementations must never emulate it with a separate
// read followed by a write.
type Store interface {
	// GetByID loads one bounty. Returns ErrNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*Bounty, error)

	// LatestOpen returns the newest open bounty, or (nil, nil) when no
	// bounty is currently open.
	LatestOpen(ctx context.Context) (*Bounty, error)

	// ClaimIfOpen atomically sets status=claimed and the winner wallet,
	// constrained on the bounty still being open. It reports whether the
	// update applied; false means another caller won the race.
	ClaimIfOpen(ctx context.Context, id, winnerWallet string) (bool, error)

	// ReleaseClaim reverts a provisional win after a failed payout:
	// status back to open, winner wallet cleared. Unconditional, because
	// only the caller that just claimed the bounty invokes it.
	ReleaseClaim(ctx context.Context, id string) error

	// SetTxnSignature records the payout proof after a confirmed transfer.
	SetTxnSignature(ctx context.Context, id, signature string) error

	// AppendAttempt inserts one audit record. Attempts are never updated
	// or deleted.
	AppendAttempt(ctx context.Context, attempt Attempt) error
}

// Package arbiter decides claims: it is the single authority for "did this
// submission win the bounty, and was the winner paid". Correctness under
// concurrent submissions rests entirely on the store's atomic conditional
// update; the arbiter itself keeps no state between requests.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/riddle-labs/bountyd/x/bounty"
	"github.com/riddle-labs/bountyd/x/commit"
	"github.com/riddle-labs/bountyd/x/payout"
	"github.com/riddle-labs/bountyd/x/verify"
)

// ClaimRequest is one user's attempt to win an open bounty.
type ClaimRequest struct {
	BountyID      string
	WalletAddress string
	Answer        string
	CaptchaToken  string
	RemoteIP      string
	UserAgent     string
}

// ClaimResult is returned only for a won, paid claim.
type ClaimResult struct {
	Signature string
	Reward    string
	AmountUSD float64
}

// Arbiter orchestrates verification, answer checking, the atomic win and
// payout dispatch with rollback on payout failure.
type Arbiter struct {
	store      bounty.Store
	verifier   verify.Verifier
	dispatcher payout.Dispatcher
	metrics    *Metrics
	defaultUSD float64
	log        zerolog.Logger
}

func New(cfg Config) (*Arbiter, error) {
	if err := cfg.apply(); err != nil {
		return nil, err
	}
	return &Arbiter{
		store:      cfg.Store,
		verifier:   cfg.Verifier,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		defaultUSD: cfg.DefaultAmountUSD,
		log:        cfg.Logger.With().Str("component", "arbiter").Logger(),
	}, nil
}

// Claim runs the sequential claim protocol. Each step may short-circuit
// with a *ClaimError carrying a distinct Outcome; a nil error means the
// caller won and was paid.
func (a *Arbiter) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	start := time.Now()
	res, err := a.claim(ctx, req)
	a.metrics.observeDuration(time.Since(start).Seconds())

	if err != nil {
		var ce *ClaimError
		if !errors.As(err, &ce) {
			ce = newClaimError(OutcomeInternalError, "Internal server error").WithCause(err)
			err = ce
		}
		a.metrics.observeOutcome(ce.Outcome)
		return nil, err
	}

	a.metrics.observeOutcome(OutcomeSuccess)
	return res, nil
}

func (a *Arbiter) claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	// Fail fast on malformed input, no state touched.
	if req.BountyID == "" || req.WalletAddress == "" || req.Answer == "" || req.CaptchaToken == "" {
		return nil, newClaimError(OutcomeInvalidRequest, "Missing required fields")
	}
	if !common.IsHexAddress(req.WalletAddress) {
		return nil, newClaimError(OutcomeInvalidRequest, "Invalid wallet address")
	}

	log := a.log.With().
		Str("bounty_id", req.BountyID).
		Str("wallet", req.WalletAddress).
		Logger()

	// Step 1: human verification. No side effects on the bounty record;
	// transport failures and explicit rejections are indistinguishable to
	// the caller.
	human, err := a.verifier.VerifyHuman(ctx, req.CaptchaToken, req.RemoteIP)
	if err != nil {
		log.Warn().Err(err).Msg("verification call failed")
		return nil, newClaimError(OutcomeVerificationFailed, "Captcha verification failed. Please try again.").WithCause(err)
	}
	if !human {
		return nil, newClaimError(OutcomeVerificationFailed, "Captcha verification failed. Please try again.")
	}

	// Step 2: fetch the bounty.
	rec, err := a.store.GetByID(ctx, req.BountyID)
	if errors.Is(err, bounty.ErrNotFound) {
		return nil, newClaimError(OutcomeNotFound, "Bounty not found")
	}
	if err != nil {
		return nil, newClaimError(OutcomeStoreFailure, "Failed to load bounty").WithCause(err)
	}

	// Step 3: status precheck. Cheap rejection before the answer check;
	// the authoritative race decision is step 5.
	if rec.Status != bounty.StatusOpen {
		msg := "Bounty is no longer available"
		if rec.Status == bounty.StatusClaimed {
			msg = "Bounty already claimed by someone else!"
		}
		return nil, newClaimError(OutcomeAlreadyResolved, msg)
	}

	// Step 4: answer check. Wrong answers are the only losing path that
	// gets audited.
	if !commit.Verify(req.Answer, rec.AnswerHash) {
		if err := a.store.AppendAttempt(ctx, attemptFrom(req, false)); err != nil {
			log.Warn().Err(err).Msg("failed to log incorrect attempt")
		}
		return nil, newClaimError(OutcomeWrongAnswer, "Incorrect answer")
	}

	// Step 5: the atomic win. Exactly one of N concurrent callers with the
	// correct answer observes applied=true.
	applied, err := a.store.ClaimIfOpen(ctx, req.BountyID, req.WalletAddress)
	if err != nil {
		// No retry: a blind retry could race a legitimate winner.
		return nil, newClaimError(OutcomeStoreFailure, "Failed to claim bounty").WithCause(err)
	}
	if !applied {
		// Correct answer, lost on timing. Not audited as an attempt.
		return nil, newClaimError(OutcomeLostRace, "Bounty was claimed by someone else just now!")
	}

	log.Info().Msg("claim won, dispatching payout")

	// From here on the win is recorded. Payout must not depend on the
	// client staying connected, so detach from request cancellation.
	payCtx := context.WithoutCancel(ctx)

	amount := a.resolveAmount(rec)
	receipt, err := a.dispatcher.SendPayout(payCtx, req.WalletAddress, amount)
	if err != nil {
		a.metrics.observePayoutFailure()
		log.Error().Err(err).Float64("amount_usd", amount).Msg("payout failed, rolling back claim")
		if rbErr := a.store.ReleaseClaim(payCtx, req.BountyID); rbErr != nil {
			// The bounty is now claimed without a payout; operator
			// intervention required.
			log.Error().Err(rbErr).Msg("rollback failed after payout failure")
			return nil, newClaimError(OutcomePayoutFailed,
				fmt.Sprintf("Payment failed: %v. Please contact support.", err)).WithCause(rbErr)
		}
		return nil, newClaimError(OutcomePayoutFailed,
			fmt.Sprintf("Payment failed: %v. Please try again or contact support.", err)).WithCause(err)
	}

	a.metrics.observePayout()

	// Best-effort bookkeeping; neither failure unwinds the win.
	if err := a.store.SetTxnSignature(payCtx, req.BountyID, receipt.Signature); err != nil {
		log.Warn().Err(err).Str("signature", receipt.Signature).Msg("failed to record txn signature")
	}
	if err := a.store.AppendAttempt(payCtx, attemptFrom(req, true)); err != nil {
		log.Warn().Err(err).Msg("failed to log winning attempt")
	}

	log.Info().
		Str("signature", receipt.Signature).
		Float64("amount_usd", amount).
		Msg("bounty claimed and paid")

	return &ClaimResult{
		Signature: receipt.Signature,
		Reward:    rec.RewardText,
		AmountUSD: amount,
	}, nil
}

var dollarAmount = regexp.MustCompile(`\$(\d+(?:\.\d+)?)`)

// resolveAmount prefers the first-class amount field; the reward-text scan
// exists only for records seeded before the column was added.
func (a *Arbiter) resolveAmount(rec *bounty.Bounty) float64 {
	if rec.AmountUSD > 0 {
		return rec.AmountUSD
	}
	if m := dollarAmount.FindStringSubmatch(rec.RewardText); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			return v
		}
	}
	a.log.Warn().
		Str("bounty_id", rec.ID).
		Str("reward_text", rec.RewardText).
		Float64("default_usd", a.defaultUSD).
		Msg("no payout amount on bounty, using configured default")
	return a.defaultUSD
}

func attemptFrom(req ClaimRequest, won bool) bounty.Attempt {
	return bounty.Attempt{
		BountyID:      req.BountyID,
		WalletAddress: req.WalletAddress,
		CaptchaToken:  req.CaptchaToken,
		IPAddress:     req.RemoteIP,
		UserAgent:     req.UserAgent,
		Won:           won,
	}
}

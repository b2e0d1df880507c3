// Package bounty holds the bounty domain model and the record store
// contract the claim arbiter depends on.
package bounty

import "time"

// Status is the lifecycle state of a bounty.
type Status string

const (
	StatusOpen    Status = "open"
	StatusClaimed Status = "claimed"
	// StatusExpired is only ever set through an administrative path;
	// the claim flow never produces it.
	StatusExpired Status = "expired"
)

// Bounty is a single puzzle-and-prize unit with exactly one eligible winner.
type Bounty struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Status     Status    `json:"status"`
	Riddle     string    `json:"riddle"`
	RewardText string    `json:"reward_text"`
	// AmountUSD is the authoritative payout amount. Zero means unset, in
	// which case the arbiter falls back to parsing RewardText.
	AmountUSD    float64 `json:"amount_usd,omitempty"`
	AnswerHash   string  `json:"answer_hash"`
	WinnerWallet *string `json:"winner_wallet"`
	TxnSignature *string `json:"txn_signature"`
}

// Attempt is one append-only audit record of a claim submission. Attempts
// feed abuse analysis only; arbitration never reads them back.
type Attempt struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	BountyID      string    `json:"bounty_id"`
	WalletAddress string    `json:"wallet_address"`
	CaptchaToken  string    `json:"captcha_token,omitempty"`
	IPAddress     string    `json:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	Won           bool      `json:"won"`
}

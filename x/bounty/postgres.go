package bounty

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresStore implements Store on a pgx connection pool. See
// scripts/schema.sql for the backing tables.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		log:  log.With().Str("component", "bounty-store").Logger(),
	}
}

const bountyColumns = `id, created_at, status, riddle, reward_text, amount_usd, answer_hash, winner_wallet, txn_signature`

func scanBounty(row pgx.Row) (*Bounty, error) {
	var b Bounty
	err := row.Scan(
		&b.ID,
		&b.CreatedAt,
		&b.Status,
		&b.Riddle,
		&b.RewardText,
		&b.AmountUSD,
		&b.AnswerHash,
		&b.WinnerWallet,
		&b.TxnSignature,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Bounty, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bountyColumns+` FROM bounties WHERE id = $1`, id)
	b, err := scanBounty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bounty %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) LatestOpen(ctx context.Context) (*Bounty, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+bountyColumns+`
FROM bounties
WHERE status = 'open'
ORDER BY created_at DESC
LIMIT 1`)
	b, err := scanBounty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest open bounty: %w", err)
	}
	return b, nil
}

// ClaimIfOpen is the race-resolution point: the WHERE status='open' guard
// makes the transition a single compare-and-swap inside Postgres, so of N
// concurrent claimers exactly one sees rows-affected = 1.
func (s *PostgresStore) ClaimIfOpen(ctx context.Context, id, winnerWallet string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE bounties
SET status = 'claimed', winner_wallet = $2
WHERE id = $1 AND status = 'open'`, id, winnerWallet)
	if err != nil {
		return false, fmt.Errorf("claim bounty %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ReleaseClaim(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE bounties
SET status = 'open', winner_wallet = NULL
WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("release bounty %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) SetTxnSignature(ctx context.Context, id, signature string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE bounties
SET txn_signature = $2
WHERE id = $1`, id, signature)
	if err != nil {
		return fmt.Errorf("set txn signature on bounty %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) AppendAttempt(ctx context.Context, attempt Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO bounty_attempts (id, bounty_id, wallet_address, captcha_token, ip_address, user_agent, won)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attempt.ID,
		attempt.BountyID,
		attempt.WalletAddress,
		attempt.CaptchaToken,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Won,
	)
	if err != nil {
		return fmt.Errorf("append attempt for bounty %s: %w", attempt.BountyID, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)

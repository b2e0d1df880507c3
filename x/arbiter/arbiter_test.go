package arbiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/riddle-labs/bountyd/x/bounty"
	"github.com/riddle-labs/bountyd/x/commit"
	"github.com/riddle-labs/bountyd/x/payout"
)

type stubVerifier struct {
	mu    sync.Mutex
	ok    bool
	err   error
	calls int
}

func (v *stubVerifier) VerifyHuman(context.Context, string, string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.ok, v.err
}

type stubDispatcher struct {
	mu         sync.Mutex
	err        error
	calls      int
	lastAddr   string
	lastAmount float64
}

func (d *stubDispatcher) SendPayout(_ context.Context, address string, amountUSD float64) (*payout.Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.lastAddr = address
	d.lastAmount = amountUSD
	if d.err != nil {
		return nil, d.err
	}
	return &payout.Receipt{Signature: fmt.Sprintf("0xsig%d", d.calls), AmountUSD: amountUSD}, nil
}

// countingStore tracks reads so tests can assert short-circuiting.
type countingStore struct {
	bounty.Store
	mu   sync.Mutex
	gets int
}

func (s *countingStore) GetByID(ctx context.Context, id string) (*bounty.Bounty, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.GetByID(ctx, id)
}

const (
	walletA = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	walletB = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

func newTestArbiter(t *testing.T, store bounty.Store, v *stubVerifier, d *stubDispatcher) *Arbiter {
	t.Helper()
	a, err := New(Config{
		Logger:           zerolog.New(io.Discard),
		Store:            store,
		Verifier:         v,
		Dispatcher:       d,
		DefaultAmountUSD: 20,
	})
	require.NoError(t, err)
	return a
}

func openBounty(id, answer, rewardText string) *bounty.Bounty {
	return &bounty.Bounty{
		ID:         id,
		Status:     bounty.StatusOpen,
		Riddle:     "I arrive without being fetched",
		RewardText: rewardText,
		AnswerHash: commit.Commit(answer),
	}
}

func claimReq(bountyID, wallet, answer string) ClaimRequest {
	return ClaimRequest{
		BountyID:      bountyID,
		WalletAddress: wallet,
		Answer:        answer,
		CaptchaToken:  "tok",
		RemoteIP:      "203.0.113.7",
		UserAgent:     "test-agent",
	}
}

func outcomeOf(t *testing.T, err error) Outcome {
	t.Helper()
	var ce *ClaimError
	require.ErrorAs(t, err, &ce)
	return ce.Outcome
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{
		Store:      bounty.NewMemoryStore(),
		Verifier:   &stubVerifier{ok: true},
		Dispatcher: &stubDispatcher{},
		// DefaultAmountUSD deliberately unset.
	})
	require.Error(t, err)
}

func TestClaimValidatesInput(t *testing.T) {
	t.Parallel()

	store := bounty.NewMemoryStore()
	verifier := &stubVerifier{ok: true}
	a := newTestArbiter(t, store, verifier, &stubDispatcher{})

	cases := []ClaimRequest{
		{},
		claimReq("", walletA, "midnight"),
		claimReq("b1", "", "midnight"),
		claimReq("b1", walletA, ""),
		{BountyID: "b1", WalletAddress: walletA, Answer: "midnight"}, // no token
		claimReq("b1", "not-an-address", "midnight"),
	}
	for _, req := range cases {
		_, err := a.Claim(context.Background(), req)
		require.Equal(t, OutcomeInvalidRequest, outcomeOf(t, err), "request %+v", req)
	}

	// Validation happens before the verifier is consulted.
	require.Zero(t, verifier.calls)
}

func TestClaimVerificationFailureShortCircuits(t *testing.T) {
	t.Parallel()

	store := &countingStore{Store: bounty.NewMemoryStore()}
	store.Store.(*bounty.MemoryStore).Put(openBounty("b1", "midnight", "$20 USDC"))

	for _, verifier := range []*stubVerifier{
		{ok: false},
		{err: errors.New("siteverify unreachable")},
	} {
		a := newTestArbiter(t, store, verifier, &stubDispatcher{})
		_, err := a.Claim(context.Background(), claimReq("b1", walletA, "midnight"))
		require.Equal(t, OutcomeVerificationFailed, outcomeOf(t, err))
	}

	// No store read, no attempt logged, state untouched.
	require.Zero(t, store.gets)
	require.Empty(t, store.Store.(*bounty.MemoryStore).Attempts())
	b, err := store.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, bounty.StatusOpen, b.Status)
}

func TestClaimNotFound(t *testing.T) {
	t.Parallel()

	a := newTestArbiter(t, bounty.NewMemoryStore(), &stubVerifier{ok: true}, &stubDispatcher{})
	_, err := a.Claim(context.Background(), claimReq("missing", walletA, "midnight"))
	require.Equal(t, OutcomeNotFound, outcomeOf(t, err))
}

func TestClaimWrongAnswerLeavesBountyOpen(t *testing.T) {
	t.Parallel()

	store := bounty.NewMemoryStore()
	store.Put(openBounty("b1", "midnight", "$20 USDC"))
	dispatcher := &stubDispatcher{}
	a := newTestArbiter(t, store, &stubVerifier{ok: true}, dispatcher)

	_, err := a.Claim(context.Background(), claimReq("b1", walletA, "noon"))
	require.Equal(t, OutcomeWrongAnswer, outcomeOf(t, err))

	b, err := store.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, bounty.StatusOpen, b.Status)
	require.Nil(t, b.WinnerWallet)
	require.Zero(t, dispatcher.calls)

	attempts := store.Attempts()
	require.Len(t, attempts, 1)
	require.Equal(t, walletA, attempts[0].WalletAddress)
	require.Equal(t, "203.0.113.7", attempts[0].IPAddress)
	require.False(t, attempts[0].Won)
}

func TestClaimAlreadyResolved(t *testing.T) {
	t.Parallel()

	store := bounty.NewMemoryStore()
	b := openBounty("b1", "midnight", "$20 USDC")
	b.Status = bounty.StatusClaimed
	store.Put(b)

	a := newTestArbiter(t, store, &stubVerifier{ok: true}, &stubDispatcher{})
	_, err := a.Claim(context.Background(), claimReq("b1", walletA, "midnight"))
	require.Equal(t, OutcomeAlreadyResolved, outcomeOf(t, err))

	var ce *ClaimError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Message, "claimed by someone else")
}

func TestClaimEndToEnd(t *testing.T) {
	t.Parallel()

	store := bounty.NewMemoryStore()
	store.Put(openBounty("B1", "midnight", "$20 USDC"))
	dispatcher := &stubDispatcher{}
	a := newTestArbiter(t, store, &stubVerifier{ok: true}, dispatcher)

	// Mixed case and trailing space normalize to the committed answer.
	res, err := a.Claim(context.Background(), claimReq("B1", walletA, "Midnight "))
	require.NoError(t, err)
	require.Equal(t, "0xsig1", res.Signature)
	require.Equal(t, "$20 USDC", res.Reward)
	require.Equal(t, float64(20), res.AmountUSD)
	require.Equal(t, walletA, dispatcher.lastAddr)

	b, err := store.GetByID(context.Background(), "B1")
	require.NoError(t, err)
	require.Equal(t, bounty.StatusClaimed, b.Status)
	require.NotNil(t, b.WinnerWallet)
	require.Equal(t, walletA, *b.WinnerWallet)
	require.NotNil(t, b.TxnSignature)
	require.Equal(t, "0xsig1", *b.TxnSignature)

	attempts := store.Attempts()
	require.Len(t, attempts, 1)
	require.True(t, attempts[0].Won)

	// Immediate second claim with the same correct answer.
	_, err = a.Claim(context.Background(), claimReq("B1", walletB, "midnight"))
	require.Equal(t, OutcomeAlreadyResolved, outcomeOf(t, err))
}

func TestClaimRaceHasExactlyOneWinner(t *testing.T) {
	t.Parallel()

	store := bounty.NewMemoryStore()
	store.Put(openBounty("b1", "midnight", "$20 USDC"))
	dispatcher := &stubDispatcher{}
	a := newTestArbiter(t, store, &stubVerifier{ok: true}, dispatcher)

	const claimers = 12
	results := make(chan error, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wallet := fmt.Sprintf("0x%040x", i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Claim(context.Background(), claimReq("b1", wallet, "midnight"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, losses int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		switch outcomeOf(t, err) {
		case OutcomeLostRace, OutcomeAlreadyResolved:
			losses++
		default:
			t.Fatalf("unexpected outcome: %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, claimers-1, losses)
	require.Equal(t, 1, dispatcher.calls)

	b, err := store.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, bounty.StatusClaimed, b.Status)
	require.NotNil(t, b.WinnerWallet)
	require.Equal(t, dispatcher.lastAddr, *b.WinnerWallet)

	// Losing the race is about timing, not correctness: only the winner
	// shows up in the audit log.
	attempts := store.Attempts()
	require.Len(t, attempts, 1)
	require.True(t, attempts[0].Won)
}

func TestClaimPayoutFailureRollsBack(t *testing.T) {
	t.Parallel()

	store := bounty.NewMemoryStore()
	store.Put(openBounty("b1", "midnight", "$20 USDC"))
	dispatcher := &stubDispatcher{err: errors.New("insufficient treasury balance")}
	a := newTestArbiter(t, store, &stubVerifier{ok: true}, dispatcher)

	_, err := a.Claim(context.Background(), claimReq("b1", walletA, "midnight"))
	require.Equal(t, OutcomePayoutFailed, outcomeOf(t, err))

	var ce *ClaimError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Message, "Payment failed")
	require.Contains(t, ce.Message, "contact support")

	// Rolled back: open again, claimable by a different wallet.
	b, err := store.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, bounty.StatusOpen, b.Status)
	require.Nil(t, b.WinnerWallet)
	require.Nil(t, b.TxnSignature)

	dispatcher.mu.Lock()
	dispatcher.err = nil
	dispatcher.mu.Unlock()

	res, err := a.Claim(context.Background(), claimReq("b1", walletB, "midnight"))
	require.NoError(t, err)
	require.NotEmpty(t, res.Signature)

	b, err = store.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, bounty.StatusClaimed, b.Status)
	require.Equal(t, walletB, *b.WinnerWallet)
}

func TestResolveAmount(t *testing.T) {
	t.Parallel()

	store := bounty.NewMemoryStore()
	dispatcher := &stubDispatcher{}
	a := newTestArbiter(t, store, &stubVerifier{ok: true}, dispatcher)

	cases := []struct {
		name       string
		rewardText string
		amountUSD  float64
		want       float64
	}{
		{"first class amount wins", "$99 USDC", 35, 35},
		{"parses first dollar token", "$20 USDC - Pro Plan", 0, 20},
		{"parses decimal amount", "$12.50 USDC", 0, 12.5},
		{"falls back to configured default", "a year of good luck", 0, 20},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := fmt.Sprintf("b%d", i)
			b := openBounty(id, "midnight", tc.rewardText)
			b.AmountUSD = tc.amountUSD
			store.Put(b)

			_, err := a.Claim(context.Background(), claimReq(id, walletA, "midnight"))
			require.NoError(t, err)
			require.Equal(t, tc.want, dispatcher.lastAmount)
		})
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/riddle-labs/bountyd/x/arbiter"
	"github.com/riddle-labs/bountyd/x/bounty"
	"github.com/riddle-labs/bountyd/x/commit"
	"github.com/riddle-labs/bountyd/x/payout"
)

const testWallet = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

type okVerifier struct{ ok bool }

func (v okVerifier) VerifyHuman(context.Context, string, string) (bool, error) { return v.ok, nil }

type okDispatcher struct{ err error }

func (d okDispatcher) SendPayout(_ context.Context, _ string, amountUSD float64) (*payout.Receipt, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &payout.Receipt{Signature: "0xsig", AmountUSD: amountUSD}, nil
}

type failingStore struct{ bounty.Store }

func (failingStore) LatestOpen(context.Context) (*bounty.Bounty, error) {
	return nil, errors.New("connection refused")
}

func newRouter(t *testing.T, store bounty.Store, human bool, payoutErr error) *mux.Router {
	t.Helper()
	log := zerolog.New(io.Discard)
	arb, err := arbiter.New(arbiter.Config{
		Logger:           log,
		Store:            store,
		Verifier:         okVerifier{ok: human},
		Dispatcher:       okDispatcher{err: payoutErr},
		DefaultAmountUSD: 20,
	})
	require.NoError(t, err)

	r := mux.NewRouter()
	NewHandler(arb, store, log).RegisterMux(r)
	return r
}

func seedStore(answer string) *bounty.MemoryStore {
	s := bounty.NewMemoryStore()
	s.Put(&bounty.Bounty{
		ID:         "b1",
		Status:     bounty.StatusOpen,
		Riddle:     "I arrive without being fetched",
		RewardText: "$20 USDC",
		AnswerHash: commit.Commit(answer),
	})
	return s
}

func postClaim(t *testing.T, r *mux.Router, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, routeClaim, bytes.NewReader(b))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func claimBody(wallet, answer string) map[string]any {
	return map[string]any{
		"bountyId":      "b1",
		"walletAddress": wallet,
		"answer":        answer,
		"captchaToken":  "tok",
	}
}

func TestGetBounty(t *testing.T) {
	t.Parallel()

	r := newRouter(t, seedStore("midnight"), true, nil)
	req := httptest.NewRequest(http.MethodGet, routeBounty, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Bounty *bounty.Bounty `json:"bounty"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Bounty)
	require.Equal(t, "b1", resp.Bounty.ID)
	require.Equal(t, commit.Commit("midnight"), resp.Bounty.AnswerHash)
}

func TestGetBountyNoneOpen(t *testing.T) {
	t.Parallel()

	r := newRouter(t, bounty.NewMemoryStore(), true, nil)
	req := httptest.NewRequest(http.MethodGet, routeBounty, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"bounty": null}`, rec.Body.String())
}

func TestGetBountyStoreFailure(t *testing.T) {
	t.Parallel()

	r := newRouter(t, failingStore{bounty.NewMemoryStore()}, true, nil)
	req := httptest.NewRequest(http.MethodGet, routeBounty, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClaimSuccess(t *testing.T) {
	t.Parallel()

	store := seedStore("midnight")
	r := newRouter(t, store, true, nil)

	rec := postClaim(t, r, claimBody(testWallet, "Midnight "))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp claimResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "0xsig", resp.Signature)
	require.Equal(t, "$20 USDC", resp.Reward)

	// The proxy-resolved client IP lands in the audit log.
	attempts := store.Attempts()
	require.Len(t, attempts, 1)
	require.Equal(t, "203.0.113.7", attempts[0].IPAddress)
}

func TestClaimStatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		human     bool
		payoutErr error
		body      map[string]any
		want      int
	}{
		{"missing fields", true, nil, map[string]any{"bountyId": "b1"}, http.StatusBadRequest},
		{"invalid address", true, nil, claimBody("nope", "midnight"), http.StatusBadRequest},
		{"wrong answer", true, nil, claimBody(testWallet, "noon"), http.StatusBadRequest},
		{"verification failed", false, nil, claimBody(testWallet, "midnight"), http.StatusForbidden},
		{"payout failed", true, errors.New("treasury empty"), claimBody(testWallet, "midnight"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := newRouter(t, seedStore("midnight"), tc.human, tc.payoutErr)
			rec := postClaim(t, r, tc.body)
			require.Equal(t, tc.want, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotEmpty(t, resp["error"])
		})
	}
}

func TestClaimNotFound(t *testing.T) {
	t.Parallel()

	r := newRouter(t, seedStore("midnight"), true, nil)
	body := claimBody(testWallet, "midnight")
	body["bountyId"] = "missing"
	rec := postClaim(t, r, body)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClaimAlreadyResolvedConflict(t *testing.T) {
	t.Parallel()

	store := seedStore("midnight")
	r := newRouter(t, store, true, nil)

	rec := postClaim(t, r, claimBody(testWallet, "midnight"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postClaim(t, r, claimBody("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "midnight"))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimPayoutFailureMessageMentionsSupport(t *testing.T) {
	t.Parallel()

	r := newRouter(t, seedStore("midnight"), true, errors.New("treasury empty"))
	rec := postClaim(t, r, claimBody(testWallet, "midnight"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Payment failed")
	require.Contains(t, rec.Body.String(), "contact support")
}

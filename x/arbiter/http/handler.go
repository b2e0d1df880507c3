// Package http exposes the bounty and claim API over JSON.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apicommon "github.com/riddle-labs/bountyd/server/api"
	"github.com/riddle-labs/bountyd/server/api/middleware"
	"github.com/riddle-labs/bountyd/x/arbiter"
	"github.com/riddle-labs/bountyd/x/bounty"
)

const (
	routeBounty = "/bounty"
	routeClaim  = "/claim"
	routeHealth = "/healthz"
)

type Handler struct {
	arbiter *arbiter.Arbiter
	store   bounty.Store
	log     zerolog.Logger
}

func NewHandler(arb *arbiter.Arbiter, store bounty.Store, log zerolog.Logger) *Handler {
	return &Handler{
		arbiter: arb,
		store:   store,
		log:     log.With().Str("component", "claim-http").Logger(),
	}
}

// RegisterMux attaches the API routes.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.HandleFunc(routeBounty, h.handleGetBounty).Methods(http.MethodGet)
	r.HandleFunc(routeClaim, h.handleClaim).Methods(http.MethodPost)
	r.HandleFunc(routeHealth, h.handleHealth).Methods(http.MethodGet)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	apicommon.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetBounty returns the newest open bounty, or a null bounty when
// none is open. The answer hash ships with the record on purpose: the front
// end pre-checks guesses locally before submitting.
func (h *Handler) handleGetBounty(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.LatestOpen(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to fetch open bounty")
		apicommon.WriteError(w, http.StatusInternalServerError, "Failed to fetch bounty")
		return
	}
	apicommon.WriteJSON(w, http.StatusOK, map[string]any{"bounty": b})
}

type claimRequest struct {
	BountyID      string `json:"bountyId"`
	WalletAddress string `json:"walletAddress"`
	Answer        string `json:"answer"`
	CaptchaToken  string `json:"captchaToken"`
}

type claimResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Reward    string `json:"reward"`
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.arbiter.Claim(r.Context(), arbiter.ClaimRequest{
		BountyID:      req.BountyID,
		WalletAddress: req.WalletAddress,
		Answer:        req.Answer,
		CaptchaToken:  req.CaptchaToken,
		RemoteIP:      middleware.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		h.writeClaimError(w, err)
		return
	}

	apicommon.WriteJSON(w, http.StatusOK, claimResponse{
		Success:   true,
		Message:   "Bounty claimed successfully!",
		Signature: res.Signature,
		Reward:    res.Reward,
	})
}

func (h *Handler) writeClaimError(w http.ResponseWriter, err error) {
	var ce *arbiter.ClaimError
	if !errors.As(err, &ce) {
		h.log.Error().Err(err).Msg("unclassified claim error")
		apicommon.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch ce.Outcome {
	case arbiter.OutcomeInvalidRequest, arbiter.OutcomeWrongAnswer:
		status = http.StatusBadRequest
	case arbiter.OutcomeVerificationFailed:
		status = http.StatusForbidden
	case arbiter.OutcomeNotFound:
		status = http.StatusNotFound
	case arbiter.OutcomeAlreadyResolved, arbiter.OutcomeLostRace:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(ce).Str("outcome", ce.Outcome.String()).Msg("claim failed")
	}
	apicommon.WriteError(w, status, ce.Message)
}

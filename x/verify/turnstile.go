package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Turnstile verifies challenge tokens against Cloudflare's siteverify API.
type Turnstile struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

// NewTurnstile fails closed: an empty secret refuses to construct rather
// than silently approving every submission.
func NewTurnstile(cfg Config, log zerolog.Logger) (*Turnstile, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("turnstile: secret is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Turnstile{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With().Str("component", "turnstile").Logger(),
	}, nil
}

type siteverifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (t *Turnstile) VerifyHuman(ctx context.Context, token, remoteIP string) (bool, error) {
	body, err := json.Marshal(siteverifyRequest{
		Secret:   t.cfg.Secret,
		Response: token,
		RemoteIP: remoteIP,
	})
	if err != nil {
		return false, fmt.Errorf("turnstile: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("turnstile: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("turnstile: siteverify call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile: siteverify status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("turnstile: decode response: %w", err)
	}

	if !out.Success {
		t.log.Debug().Strs("error_codes", out.ErrorCodes).Msg("challenge rejected")
	}
	return out.Success, nil
}

var _ Verifier = (*Turnstile)(nil)

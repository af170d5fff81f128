// Package token talks to the external token ledger service that holds the
// actual balances. Transfers are fire-and-forget: settlement commits locally
// first and a failed dispatch is only logged, never rolled back.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/config"
	"stake-arena/internal/model"
)

// Notifier dispatches settlement transfers to the token ledger.
type Notifier interface {
	Dispatch(ctx context.Context, intents []model.TransferIntent)
}

// Client is an HTTP Notifier posting one transfer request per intent.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient creates a new token ledger client.
func NewClient(cfg *config.TokenConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.ServiceURL,
		secret:  cfg.WebhookSecret,
		http:    &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	ID        string `json:"id"`
	TokenType string `json:"token_type"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo"`
}

// Dispatch posts each intent to the ledger's transfer endpoint. Failures are
// logged with the intent id so they can be replayed from the intent table;
// the caller never observes them.
func (c *Client) Dispatch(ctx context.Context, intents []model.TransferIntent) {
	for _, intent := range intents {
		if err := c.transfer(ctx, intent); err != nil {
			log.Error().
				Err(err).
				Str("intent_id", intent.ID).
				Str("to", intent.To).
				Int64("amount", intent.Amount).
				Msg("Token transfer dispatch failed")
			continue
		}
		log.Info().
			Str("intent_id", intent.ID).
			Str("to", intent.To).
			Str("token_type", intent.TokenType).
			Int64("amount", intent.Amount).
			Str("kind", intent.Kind).
			Msg("Token transfer dispatched")
	}
}

func (c *Client) transfer(ctx context.Context, intent model.TransferIntent) error {
	body, err := json.Marshal(transferRequest{
		ID:        intent.ID,
		TokenType: intent.TokenType,
		To:        intent.To,
		Amount:    intent.Amount,
		Memo:      intent.Memo,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Ledger-Secret", c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post transfer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("token ledger returned status %d", resp.StatusCode)
	}
	return nil
}

package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stake-arena/internal/config"
	"stake-arena/internal/model"
)

func TestClient_Dispatch(t *testing.T) {
	var received []transferRequest
	var secrets []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transfers", r.URL.Path)
		secrets = append(secrets, r.Header.Get("X-Ledger-Secret"))

		var req transferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = append(received, req)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(&config.TokenConfig{
		ServiceURL:     srv.URL,
		WebhookSecret:  "hush",
		RequestTimeout: 5 * time.Second,
	})

	client.Dispatch(context.Background(), []model.TransferIntent{
		{ID: "i-1", TokenType: "usdt", To: "bob.near", Amount: 150, Kind: model.IntentRefund, Memo: "stake refund"},
		{ID: "i-2", TokenType: "usdt", To: "carol.near", Amount: 234, Kind: model.IntentPrize, Memo: "rank 1 prize"},
	})

	require.Len(t, received, 2)
	assert.Equal(t, "i-1", received[0].ID)
	assert.Equal(t, "bob.near", received[0].To)
	assert.Equal(t, int64(150), received[0].Amount)
	assert.Equal(t, "carol.near", received[1].To)
	assert.Equal(t, []string{"hush", "hush"}, secrets)
}

// A failing ledger must not stop the remaining transfers; dispatch is
// fire-and-forget and reports nothing to the caller.
func TestClient_DispatchContinuesOnFailure(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(&config.TokenConfig{ServiceURL: srv.URL})

	client.Dispatch(context.Background(), []model.TransferIntent{
		{ID: "i-1", To: "bob.near", Amount: 10},
		{ID: "i-2", To: "carol.near", Amount: 20},
	})

	assert.Equal(t, 2, calls)
}

package statusstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"batch_transfer/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

func newRemote(t *testing.T, status int, reply string) (*HTTPStore, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*rec = recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return NewHTTPStore(srv.URL+"/", "secret", 2*time.Second, zap.NewNop()), rec
}

func TestHTTPStore_ApplyStatusUpdates(t *testing.T) {
	s, rec := newRemote(t, http.StatusOK, `{"success":true,"data":{"totalUpdates":1,"successfulUpdates":1,"failedUpdates":0,"results":[{"walletAddress":"W1","tokenAddress":"MintA","status":"executed","success":true}]}}`)

	res, err := s.ApplyStatusUpdates(context.Background(), []entity.ExecutionStatusUpdate{
		{WalletAddress: "W1", TokenAddress: "MintA", ChainID: chain, Status: entity.StatusExecuted, TxHash: "sig"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessfulUpdates)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Success)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, updateStatusPath, rec.path)
	assert.Equal(t, "Bearer secret", rec.auth)

	var sent struct {
		Updates []entity.ExecutionStatusUpdate `json:"updates"`
	}
	require.NoError(t, json.Unmarshal([]byte(rec.body), &sent))
	require.Len(t, sent.Updates, 1)
	assert.Equal(t, "sig", sent.Updates[0].TxHash)
}

func TestHTTPStore_ListPendingCandidates(t *testing.T) {
	s, rec := newRemote(t, http.StatusOK, `{"success":true,"data":[{"walletAddress":"W1","tokenAddresses":["MintA","MintB"]}]}`)

	got, err := s.ListPendingCandidates(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, []entity.CandidatePair{{WalletAddress: "W1", TokenAddresses: []string{"MintA", "MintB"}}}, got)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, pendingPath, rec.path)
	assert.Equal(t, "chainId="+chain, rec.query)
}

func TestHTTPStore_ResetAllPending(t *testing.T) {
	s, _ := newRemote(t, http.StatusOK, `{"success":true,"message":"Reset 2 pending tokens to new status","data":{"message":"Reset 2 pending tokens to new status","totalReset":2,"updatedWallets":[{"walletAddress":"W1","resetCount":2}]}}`)

	got, err := s.ResetAllPending(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalReset)
	assert.Equal(t, []entity.WalletResetCount{{WalletAddress: "W1", ResetCount: 2}}, got.UpdatedWallets)
}

func TestHTTPStore_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		wantErr error
		wantMsg string
	}{
		{"wallet not found", http.StatusNotFound, `{"success":false,"error":"Wallet not found"}`, entity.ErrWalletNotFound, ""},
		{"no wallets", http.StatusNotFound, `{"success":false,"error":"No wallets found for this chain ID"}`, entity.ErrNoWallets, ""},
		{"not pending", http.StatusBadRequest, `{"success":false,"error":"Token not found or not in pending status"}`, entity.ErrTokenNotPending, ""},
		{"other bad request", http.StatusBadRequest, `{"success":false,"error":"Chain ID is required"}`, nil, "status API: Chain ID is required"},
		{"server error", http.StatusInternalServerError, `{"success":false,"error":"boom"}`, nil, "failed with status 500: boom"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, nil, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newRemote(t, tt.status, tt.reply)
			err := s.ResetTokenStatus(context.Background(), "W1", "MintA", chain)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestHTTPStore_UsesContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()
	s := NewHTTPStore(srv.URL, "", time.Minute, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.ListPendingCandidates(ctx, chain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute request")
}

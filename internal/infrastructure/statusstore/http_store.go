package statusstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"batch_transfer/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Remote routes, relative to the base URL.
const (
	updateStatusPath     = "/api/v1/operations/execution/update-status"
	pendingPath          = "/api/v1/operations/execution/pending"
	resetTokenStatusPath = "/api/v1/operations/allowance/reset-token-status"
	resetAllPendingPath  = "/api/v1/operations/allowance/reset-all-pending"
)

// HTTPStore implements port.StatusStore against a remote operations API.
type HTTPStore struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPStore creates a remote status store.
func NewHTTPStore(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPStore {
	return &HTTPStore{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("HTTPStatusStore"),
	}
}

type apiEnvelope struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// ApplyStatusUpdates posts every update in one request.
func (s *HTTPStore) ApplyStatusUpdates(ctx context.Context, updates []entity.ExecutionStatusUpdate) (entity.ApplyStatusResult, error) {
	var res entity.ApplyStatusResult
	body := map[string]any{"updates": updates}
	if err := s.do(ctx, fasthttp.MethodPost, updateStatusPath, body, &res); err != nil {
		return entity.ApplyStatusResult{}, err
	}
	return res, nil
}

// ListPendingCandidates fetches the pending pairs of a chain.
func (s *HTTPStore) ListPendingCandidates(ctx context.Context, chainID string) ([]entity.CandidatePair, error) {
	var out []entity.CandidatePair
	path := pendingPath + "?chainId=" + url.QueryEscape(chainID)
	if err := s.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetTokenStatus moves one pending token back to new.
func (s *HTTPStore) ResetTokenStatus(ctx context.Context, walletAddress, tokenAddress, chainID string) error {
	body := map[string]string{"walletAddress": walletAddress, "tokenAddress": tokenAddress, "chainId": chainID}
	return s.do(ctx, fasthttp.MethodPost, resetTokenStatusPath, body, nil)
}

// ResetAllPending moves every pending token of the chain back to new.
func (s *HTTPStore) ResetAllPending(ctx context.Context, chainID string) (entity.ResetSummary, error) {
	var summary entity.ResetSummary
	if err := s.do(ctx, fasthttp.MethodPost, resetAllPendingPath, map[string]string{"chainId": chainID}, &summary); err != nil {
		return entity.ResetSummary{}, err
	}
	return summary, nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, in, out any) error {
	requestURL := s.baseURL + path

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(method)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request to %s: %w", path, err)
		}
		req.SetBody(payload)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.client.DoDeadline(req, resp, deadline); err != nil {
			s.logger.Error("Status API request failed", zap.String("url", requestURL), zap.Error(err))
			return fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else if err := s.client.DoTimeout(req, resp, s.timeout); err != nil {
		s.logger.Error("Status API request failed (with default timeout)", zap.String("url", requestURL), zap.Error(err))
		return fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
	}

	rawBody := resp.Body()
	var env apiEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return fmt.Errorf("decode response of %s (status %d): %w", requestURL, resp.StatusCode(), err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return remoteError(env.Error, entity.ErrWalletNotFound, entity.ErrNoWallets)
	case fasthttp.StatusBadRequest:
		return remoteError(env.Error, entity.ErrTokenNotPending)
	default:
		s.logger.Error("Status API returned an error",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody))
		return fmt.Errorf("status API %s failed with status %d: %s", requestURL, resp.StatusCode(), env.Error)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data of %s: %w", requestURL, err)
	}
	return nil
}

// remoteError maps a remote message back to the matching sentinel.
func remoteError(msg string, known ...error) error {
	for _, k := range known {
		if msg == k.Error() {
			return k
		}
	}
	return fmt.Errorf("status API: %s", msg)
}

package restapi

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExecuteRequest - тело запроса на запуск исполнения.
type ExecuteRequest struct {
	ReceiverAddress string                 `json:"receiverAddress" binding:"required"`
	SelectedRows    []entity.CandidatePair `json:"selectedRows,omitempty"`
}

// DelegationCheckItem is one pair of a delegation check request.
type DelegationCheckItem struct {
	WalletAddress   string `json:"walletAddress" binding:"required"`
	TokenAddress    string `json:"tokenAddress" binding:"required"`
	DelegateAddress string `json:"delegateAddress,omitempty"`
}

// DelegationCheckRequest - тело запроса проверки делегирования.
type DelegationCheckRequest struct {
	Items []DelegationCheckItem `json:"items" binding:"required,dive"`
}

// DelegationCheckResult is the per-pair answer of a delegation check.
type DelegationCheckResult struct {
	WalletAddress   string `json:"walletAddress"`
	TokenAddress    string `json:"tokenAddress"`
	IsDelegated     bool   `json:"isDelegated"`
	DelegatedAmount string `json:"delegatedAmount"`
	Error           string `json:"error,omitempty"`
}

// ExecutionHandler запускает пакетные переводы по сетям.
type ExecutionHandler struct {
	services map[string]port.BatchTransferService
	backends port.ChainBackendProvider
	store    port.StatusStore
	logger   *zap.Logger

	mu      sync.Mutex
	running map[string]bool
}

// NewExecutionHandler создает обработчик. services индексируются идентификатором сети.
func NewExecutionHandler(
	services map[string]port.BatchTransferService,
	backends port.ChainBackendProvider,
	store port.StatusStore,
	logger *zap.Logger,
) *ExecutionHandler {
	return &ExecutionHandler{
		services: services,
		backends: backends,
		store:    store,
		logger:   logger.Named("ExecutionHandler"),
		running:  make(map[string]bool),
	}
}

// lookup accepts a network identifier or a chain id.
func (h *ExecutionHandler) lookup(chain string) (string, port.BatchTransferService, bool) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	if svc, ok := h.services[chain]; ok {
		return chain, svc, true
	}
	for id, svc := range h.services {
		if svc.ChainID() == chain {
			return id, svc, true
		}
	}
	return "", nil, false
}

func (h *ExecutionHandler) acquire(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running[id] {
		return false
	}
	h.running[id] = true
	return true
}

func (h *ExecutionHandler) release(id string) {
	h.mu.Lock()
	delete(h.running, id)
	h.mu.Unlock()
}

// Execute запускает полный цикл: делегирования, батчи, запись статусов.
// Без selectedRows берутся pending пары из хранилища.
func (h *ExecutionHandler) Execute(c *gin.Context) {
	id, svc, ok := h.lookup(c.Param("chain"))
	if !ok {
		respondError(c, http.StatusNotFound, errors.New("Unknown chain"))
		return
	}

	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if !h.acquire(id) {
		respondError(c, http.StatusConflict, errors.New("Execution already running for this chain"))
		return
	}
	defer h.release(id)

	ctx := c.Request.Context()
	pending, err := h.store.ListPendingCandidates(ctx, svc.ChainID())
	if err != nil {
		h.logger.Error("Failed to load pending candidates", zap.String("chain", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, errors.New("Failed to load pending candidates"))
		return
	}
	candidates := pending
	if req.SelectedRows != nil {
		var dropped int
		candidates, dropped = selectPending(req.SelectedRows, pending)
		if dropped > 0 {
			h.logger.Warn("Ignoring selected pairs that are not pending", zap.String("chain", id), zap.Int("dropped", dropped))
		}
	}

	result, err := svc.Execute(ctx, entity.ExecutionRequest{
		Candidates:      candidates,
		ReceiverAddress: req.ReceiverAddress,
		OnProgress: func(phase string, current, total int) {
			h.logger.Debug(phase, zap.String("chain", id), zap.Int("current", current), zap.Int("total", total))
		},
	})
	switch {
	case errors.Is(err, entity.ErrInvalidAddress):
		respondError(c, http.StatusBadRequest, err)
		return
	case errors.Is(err, entity.ErrSignerUnavailable), errors.Is(err, entity.ErrSignerRejected):
		respondError(c, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		h.logger.Error("Execution failed to start", zap.String("chain", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	msg := "Execution completed"
	if result.NoItems {
		msg = "No transferable items"
	}
	respondOK(c, result, msg)
}

// CheckDelegations проверяет делегирование для списка пар без записи в хранилище.
func (h *ExecutionHandler) CheckDelegations(c *gin.Context) {
	id, _, ok := h.lookup(c.Param("chain"))
	if !ok {
		respondError(c, http.StatusNotFound, errors.New("Unknown chain"))
		return
	}
	var req DelegationCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	backend, err := h.backends.GetBackend(ctx, id)
	if err != nil {
		h.logger.Error("Failed to get chain backend", zap.String("chain", id), zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, err)
		return
	}

	delegate := backend.DefaultDelegate("")
	out := make([]DelegationCheckResult, 0, len(req.Items))
	for _, it := range req.Items {
		res := DelegationCheckResult{WalletAddress: it.WalletAddress, TokenAddress: it.TokenAddress, DelegatedAmount: "0"}
		d := delegate
		if it.DelegateAddress != "" {
			d = it.DelegateAddress
		}
		info, err := backend.CheckDelegation(ctx, it.WalletAddress, it.TokenAddress, d)
		switch {
		case err != nil:
			res.Error = err.Error()
		case info != nil:
			res.IsDelegated = info.IsDelegated
			if info.DelegatedAmount != nil {
				res.DelegatedAmount = info.DelegatedAmount.String()
			}
		}
		out = append(out, res)
	}
	respondOK(c, out, "")
}

// selectPending keeps the selected tokens whose stored status is pending, in request order.
// It returns the kept rows and the number of dropped tokens.
func selectPending(selected, pending []entity.CandidatePair) ([]entity.CandidatePair, int) {
	allowed := make(map[string]struct{})
	for _, row := range pending {
		for _, tok := range row.TokenAddresses {
			allowed[pendingKey(row.WalletAddress, tok)] = struct{}{}
		}
	}

	out := make([]entity.CandidatePair, 0, len(selected))
	dropped := 0
	for _, row := range selected {
		kept := make([]string, 0, len(row.TokenAddresses))
		for _, tok := range row.TokenAddresses {
			if _, ok := allowed[pendingKey(row.WalletAddress, tok)]; ok {
				kept = append(kept, tok)
				continue
			}
			dropped++
		}
		if len(kept) > 0 {
			out = append(out, entity.CandidatePair{WalletAddress: row.WalletAddress, TokenAddresses: kept})
		}
	}
	return out, dropped
}

func pendingKey(wallet, token string) string {
	return strings.ToLower(strings.TrimSpace(wallet)) + "|" + entity.NormalizeTokenKey(token)
}

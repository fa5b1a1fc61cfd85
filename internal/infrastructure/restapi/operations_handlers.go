package restapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpdateStatusRequest - тело запроса update-status.
type UpdateStatusRequest struct {
	Updates []entity.ExecutionStatusUpdate `json:"updates" binding:"required,dive"`
}

// ResetTokenStatusRequest - тело запроса reset-token-status.
type ResetTokenStatusRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	TokenAddress  string `json:"tokenAddress" binding:"required"`
	ChainID       string `json:"chainId" binding:"required"`
}

// ResetAllPendingRequest - тело запроса reset-all-pending.
type ResetAllPendingRequest struct {
	ChainID string `json:"chainId"`
}

// ResetAllPendingData is the data of a successful reset-all-pending response.
type ResetAllPendingData struct {
	Message string `json:"message"`
	entity.ResetSummary
}

// OperationsHandler обрабатывает запросы к хранилищу статусов исполнения.
type OperationsHandler struct {
	store  port.StatusStore
	logger *zap.Logger
}

// NewOperationsHandler создает новый экземпляр OperationsHandler.
func NewOperationsHandler(store port.StatusStore, logger *zap.Logger) *OperationsHandler {
	return &OperationsHandler{store: store, logger: logger.Named("OperationsHandler")}
}

// UpdateStatus применяет пачку обновлений статуса. Каждое обновление применяется независимо.
func (h *OperationsHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	for i, u := range req.Updates {
		if err := u.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, fmt.Errorf("updates[%d]: %w", i, err))
			return
		}
	}

	res, err := h.store.ApplyStatusUpdates(c.Request.Context(), req.Updates)
	if err != nil {
		h.logger.Error("Failed to update execution status", zap.Error(err))
		respondError(c, http.StatusInternalServerError, errors.New("Failed to update execution status"))
		return
	}
	respondOK(c, res, "")
}

// ListPending возвращает пары со статусом pending для chainId.
func (h *OperationsHandler) ListPending(c *gin.Context) {
	chainID := strings.TrimSpace(c.Query("chainId"))
	if chainID == "" {
		respondError(c, http.StatusBadRequest, errors.New("Chain ID is required"))
		return
	}
	pairs, err := h.store.ListPendingCandidates(c.Request.Context(), chainID)
	if err != nil {
		h.logger.Error("Failed to list pending candidates", zap.String("chainId", chainID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, errors.New("Failed to list pending candidates"))
		return
	}
	if pairs == nil {
		pairs = []entity.CandidatePair{}
	}
	respondOK(c, pairs, "")
}

// ResetTokenStatus переводит один токен из pending обратно в new.
func (h *OperationsHandler) ResetTokenStatus(c *gin.Context) {
	var req ResetTokenStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	err := h.store.ResetTokenStatus(c.Request.Context(), req.WalletAddress, req.TokenAddress, req.ChainID)
	switch {
	case errors.Is(err, entity.ErrWalletNotFound):
		respondError(c, http.StatusNotFound, entity.ErrWalletNotFound)
		return
	case errors.Is(err, entity.ErrTokenNotPending):
		respondError(c, http.StatusBadRequest, entity.ErrTokenNotPending)
		return
	case err != nil:
		h.logger.Error("Failed to reset token status", zap.String("wallet", req.WalletAddress), zap.Error(err))
		respondError(c, http.StatusInternalServerError, errors.New("Failed to reset token status"))
		return
	}

	h.logger.Info("Token status reset", zap.String("wallet", req.WalletAddress), zap.String("token", req.TokenAddress))
	respondOK(c, gin.H{
		"walletAddress": req.WalletAddress,
		"tokenAddress":  req.TokenAddress,
		"chainId":       req.ChainID,
		"status":        entity.StatusNew,
	}, "Token status reset to new")
}

// ResetAllPending переводит все pending токены сети в new.
func (h *OperationsHandler) ResetAllPending(c *gin.Context) {
	var req ResetAllPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.ChainID) == "" {
		respondError(c, http.StatusBadRequest, errors.New("Chain ID is required"))
		return
	}

	summary, err := h.store.ResetAllPending(c.Request.Context(), req.ChainID)
	switch {
	case errors.Is(err, entity.ErrNoWallets):
		respondError(c, http.StatusNotFound, entity.ErrNoWallets)
		return
	case err != nil:
		h.logger.Error("Failed to reset pending tokens", zap.String("chainId", req.ChainID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, errors.New("Failed to reset pending tokens"))
		return
	}

	msg := fmt.Sprintf("Reset %d pending tokens to new status", summary.TotalReset)
	h.logger.Info(msg, zap.String("chainId", req.ChainID))
	respondOK(c, ResetAllPendingData{Message: msg, ResetSummary: summary}, msg)
}

package api

import (
	"net/http"
	"strings"

	"github.com/fastprodman/fortunefloor/internal/services/balance"
	"github.com/shopspring/decimal"
)

func parseSourceType(h http.Header) (balance.SourceType, error) {
	src := balance.SourceType(strings.ToLower(strings.TrimSpace(h.Get("Source-Type"))))
	if !src.Valid() {
		return "", errInvalidSource
	}

	return src, nil
}

type txRequest struct {
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
}

// GetBalanceHandler handles GET /users/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	u, err := h.balance.GetBalance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// ProcessTransactionHandler handles POST /users/{userId}/transactions
func (h *HandlerProvider) ProcessTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	source, err := parseSourceType(r.Header)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid Source-Type header")
		return
	}

	var req txRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := balance.Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind != balance.KindDeposit && kind != balance.KindWithdrawal {
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be > 0")
		return
	}

	opID := req.TransactionID
	if opID == "" {
		opID = operationID(r)
	}
	if opID == "" {
		writeError(w, http.StatusBadRequest, "transactionId required")
		return
	}

	b, err := h.balance.ProcessTransaction(r.Context(), balance.Transaction{
		OperationID: opID,
		UserID:      userID,
		Source:      source,
		Kind:        kind,
		Amount:      req.Amount,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "breakdown": b})
}

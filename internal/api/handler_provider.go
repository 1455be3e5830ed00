package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/pricing"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/fastprodman/fortunefloor/internal/services/balance"
	"github.com/fastprodman/fortunefloor/internal/services/machines"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdempotencyHeader carries the client's operation id for mutations.
const IdempotencyHeader = "Idempotency-Key"

// MachineService is what the HTTP layer needs from machines.Service.
type MachineService interface {
	Tiers(ctx context.Context) []domain.TierDefinition
	Quote(ctx context.Context, userID uint64, tier int) (*machines.PurchaseQuote, error)
	Purchase(ctx context.Context, userID uint64, tier int, operationID string) (*machines.PurchaseResult, error)
	ListMachines(ctx context.Context, userID uint64, statuses ...domain.Status) ([]machines.View, error)
	ComputeState(ctx context.Context, userID uint64, machineID uuid.UUID) (*machines.View, error)
	History(ctx context.Context, userID uint64, limit int, types ...domain.EntryType) ([]*domain.LedgerEntry, error)
	Collect(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*machines.CollectResult, error)

	EarlySaleQuote(ctx context.Context, userID uint64, machineID uuid.UUID) (*pricing.EarlySaleQuote, error)
	SellEarly(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*machines.EarlySaleResult, error)
	PawnshopQuote(ctx context.Context, userID uint64, machineID uuid.UUID) (*pricing.PawnshopQuote, error)
	SellToPawnshop(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*machines.PawnshopResult, error)
	AuctionQuote(ctx context.Context, userID uint64, machineID uuid.UUID) (*pricing.AuctionQuote, error)
	ListOnAuction(ctx context.Context, userID uint64, machineID uuid.UUID) (*machines.ListingResult, error)
	CancelAuctionListing(ctx context.Context, userID uint64, machineID uuid.UUID) error
	Queue(ctx context.Context, tier int) (*machines.QueueInfo, error)
	QueueSummary(ctx context.Context) ([]listings.QueueStat, error)
	SellerListings(ctx context.Context, userID uint64, limit int) ([]*domain.AuctionListing, error)

	GambleInfo(ctx context.Context, userID uint64, machineID uuid.UUID) (*machines.GambleInfo, error)
	RiskyCollect(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*machines.GambleResult, error)
	UpgradeGamble(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*machines.UpgradeResult, error)
	HireCollector(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*machines.UpgradeResult, error)
	CoinBoxInfo(ctx context.Context, userID uint64, machineID uuid.UUID) (*machines.CoinBoxInfo, error)
	UpgradeCoinBox(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*machines.UpgradeResult, error)
	PurchaseOverclock(
		ctx context.Context,
		userID uint64,
		machineID uuid.UUID,
		multiplier decimal.Decimal,
		operationID string,
	) (*machines.UpgradeResult, error)

	TierUnlockInfo(ctx context.Context, userID uint64, tier int) (*machines.TierUnlockInfo, error)
	PurchaseTierUnlock(ctx context.Context, userID uint64, tier int, operationID string) (*machines.TierUnlockResult, error)
}

// BalanceService is what the HTTP layer needs from balance.BalanceService.
type BalanceService interface {
	ProcessTransaction(ctx context.Context, t balance.Transaction) (fundsource.Breakdown, error)
	GetBalance(ctx context.Context, userID uint64) (*domain.User, error)
}

// Subscriber upgrades a request into a live event stream for one user.
type Subscriber interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uint64)
}

var _ Subscriber = (*notify.Hub)(nil)

var errInvalidSource = errors.New("invalid Source-Type")

// HandlerProvider wraps the services and exposes HTTP handlers.
type HandlerProvider struct {
	machines MachineService
	balance  BalanceService
	events   Subscriber
}

// NewHandler returns a new Handler provider. events may be nil.
func NewHandler(m MachineService, b BalanceService, events Subscriber) *HandlerProvider {
	return &HandlerProvider{machines: m, balance: b, events: events}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps domain sentinels to status codes. Insufficient balance
// is a conflict with its own code so clients can tell it from duplicates.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"

	var stateErr *domain.StateError

	switch {
	case errors.Is(err, domain.ErrDuplicateOperation):
		status, code = http.StatusConflict, "duplicate_operation"
	case errors.Is(err, domain.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrOwnership):
		status, code = http.StatusForbidden, "not_owner"
	case errors.Is(err, domain.ErrTierLocked):
		status, code = http.StatusForbidden, "tier_locked"
	case errors.Is(err, domain.ErrMaxLevelReached):
		status, code = http.StatusUnprocessableEntity, "max_level_reached"
	case errors.Is(err, domain.ErrUnavailable):
		status, code = http.StatusUnprocessableEntity, "unavailable"
	case errors.As(err, &stateErr):
		status, code = http.StatusUnprocessableEntity, "invalid_state"
		writeJSON(w, status, errorBody{Error: stateErr.Error(), Code: code})

		return
	case errors.Is(err, domain.ErrInvalidState):
		status, code = http.StatusUnprocessableEntity, "invalid_state"
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorBody{Error: "internal error", Code: code})

		return
	}

	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

// parseUserIDFromPath reads `{userId}` from chi routes like:
//
//	GET  /users/{userId}/balance
//	POST /users/{userId}/machines
func parseUserIDFromPath(r *http.Request) (uint64, error) {
	idStr := chi.URLParam(r, "userId")
	if idStr == "" {
		return 0, fmt.Errorf("missing userId")
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid userId: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("invalid userId: must be positive")
	}

	return id, nil
}

func parseMachineIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "machineId"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid machineId: %w", err)
	}

	return id, nil
}

func parseTierFromPath(r *http.Request) (int, error) {
	tier, err := strconv.Atoi(chi.URLParam(r, "tier"))
	if err != nil || tier < 1 {
		return 0, fmt.Errorf("invalid tier")
	}

	return tier, nil
}

// parseLimit reads ?limit=, 0 when absent.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit")
	}

	return n, nil
}

// operationID returns the Idempotency-Key header. Empty lets the service
// generate one, which makes the request non-retryable.
func operationID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdempotencyHeader))
}

// decodeJSON reads a bounded body and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// userAndMachine parses both path ids, writing a 400 on failure.
func userAndMachine(w http.ResponseWriter, r *http.Request) (uint64, uuid.UUID, bool) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return 0, uuid.Nil, false
	}

	machineID, err := parseMachineIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid machineId in path")
		return 0, uuid.Nil, false
	}

	return userID, machineID, true
}

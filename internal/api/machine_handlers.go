package api

import (
	"net/http"
	"strings"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/gamble"
	"github.com/fastprodman/fortunefloor/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TiersHandler handles GET /tiers
func (h *HandlerProvider) TiersHandler(w http.ResponseWriter, r *http.Request) {
	tiers := h.machines.Tiers(r.Context())

	out := make([]tierDTO, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, toTierDTO(t))
	}

	writeJSON(w, http.StatusOK, out)
}

type purchaseQuoteResponse struct {
	Tier         tierDTO              `json:"tier"`
	Balance      decimal.Decimal      `json:"balance"`
	CanAfford    bool                 `json:"canAfford"`
	Locked       bool                 `json:"locked"`
	Breakdown    fundsource.Breakdown `json:"breakdown"`
	QueuedOnSale int                  `json:"queuedOnSale"`
}

// PurchaseQuoteHandler handles GET /users/{userId}/tiers/{tier}/quote
func (h *HandlerProvider) PurchaseQuoteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	tier, err := parseTierFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.machines.Quote(r.Context(), userID, tier)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, purchaseQuoteResponse{
		Tier:         toTierDTO(q.Tier),
		Balance:      q.Balance,
		CanAfford:    q.CanAfford,
		Locked:       q.Locked,
		Breakdown:    q.Breakdown,
		QueuedOnSale: q.QueuedOnSale,
	})
}

type purchaseRequest struct {
	Tier int `json:"tier"`
}

type purchaseResponse struct {
	Machine   machineDTO           `json:"machine"`
	Breakdown fundsource.Breakdown `json:"breakdown"`
	Listing   *listingDTO          `json:"settledListing,omitempty"`
}

// PurchaseHandler handles POST /users/{userId}/machines
func (h *HandlerProvider) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	var req purchaseRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Tier < 1 {
		writeError(w, http.StatusBadRequest, "invalid tier")
		return
	}

	res, err := h.machines.Purchase(r.Context(), userID, req.Tier, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, purchaseResponse{
		Machine:   toMachineDTO(res.Machine),
		Breakdown: res.Breakdown,
		Listing:   toListingDTO(res.Listing),
	})
}

// ListMachinesHandler handles GET /users/{userId}/machines?status=active,expired
func (h *HandlerProvider) ListMachinesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	var statuses []domain.Status

	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := domain.Status(strings.TrimSpace(s))
			if !st.Valid() {
				writeError(w, http.StatusBadRequest, "invalid status filter")
				return
			}

			statuses = append(statuses, st)
		}
	}

	views, err := h.machines.ListMachines(r.Context(), userID, statuses...)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]machineDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toViewDTO(v))
	}

	writeJSON(w, http.StatusOK, out)
}

// MachineHandler handles GET /users/{userId}/machines/{machineId}
func (h *HandlerProvider) MachineHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	v, err := h.machines.ComputeState(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toViewDTO(*v))
}

// HistoryHandler handles GET /users/{userId}/history?limit=&type=
func (h *HandlerProvider) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var types []domain.EntryType
	for _, t := range r.URL.Query()["type"] {
		types = append(types, domain.EntryType(t))
	}

	entries, err := h.machines.History(r.Context(), userID, limit, types...)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]ledgerDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerDTO(e))
	}

	writeJSON(w, http.StatusOK, out)
}

type collectResponse struct {
	MachineID        uuid.UUID            `json:"machineId"`
	Box              decimal.Decimal      `json:"box"`
	Credited         decimal.Decimal      `json:"credited"`
	ProfitPortion    decimal.Decimal      `json:"profitPortion"`
	PrincipalPortion decimal.Decimal      `json:"principalPortion"`
	Overclock        decimal.Decimal      `json:"overclock"`
	Breakdown        fundsource.Breakdown `json:"breakdown"`
	Expired          bool                 `json:"expired"`
}

// CollectHandler handles POST /users/{userId}/machines/{machineId}/collect
func (h *HandlerProvider) CollectHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.Collect(r.Context(), userID, machineID, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, collectResponse{
		MachineID:        res.MachineID,
		Box:              res.Box,
		Credited:         res.Credited,
		ProfitPortion:    res.ProfitPortion,
		PrincipalPortion: res.PrincipalPortion,
		Overclock:        res.Overclock,
		Breakdown:        res.Breakdown,
		Expired:          res.Expired,
	})
}

type gambleInfoResponse struct {
	Level             gamble.Level    `json:"level"`
	ExpectedValue     decimal.Decimal `json:"expectedValue"`
	Next              *gamble.Level   `json:"next,omitempty"`
	NextExpectedValue decimal.Decimal `json:"nextExpectedValue"`
	UpgradeCost       decimal.Decimal `json:"upgradeCost"`
	WinMultiplier     decimal.Decimal `json:"winMultiplier"`
	LoseMultiplier    decimal.Decimal `json:"loseMultiplier"`
}

// GambleInfoHandler handles GET /users/{userId}/machines/{machineId}/gamble
func (h *HandlerProvider) GambleInfoHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	info, err := h.machines.GambleInfo(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, gambleInfoResponse{
		Level:             info.Level,
		ExpectedValue:     info.ExpectedValue,
		Next:              info.Next,
		NextExpectedValue: info.NextExpectedValue,
		UpgradeCost:       info.UpgradeCost,
		WinMultiplier:     info.WinMultiplier,
		LoseMultiplier:    info.LoseMultiplier,
	})
}

type gambleResponse struct {
	gamble.Outcome
	Box       decimal.Decimal      `json:"box"`
	Overclock decimal.Decimal      `json:"overclock"`
	Breakdown fundsource.Breakdown `json:"breakdown"`
}

// RiskyCollectHandler handles POST /users/{userId}/machines/{machineId}/gamble
func (h *HandlerProvider) RiskyCollectHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.RiskyCollect(r.Context(), userID, machineID, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, gambleResponse{
		Outcome:   res.Outcome,
		Box:       res.Box,
		Overclock: res.Overclock,
		Breakdown: res.Breakdown,
	})
}

// UpgradeGambleHandler handles POST /users/{userId}/machines/{machineId}/gamble/upgrade
func (h *HandlerProvider) UpgradeGambleHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.UpgradeGamble(r.Context(), userID, machineID, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTO(res))
}

// HireCollectorHandler handles POST /users/{userId}/machines/{machineId}/collector
func (h *HandlerProvider) HireCollectorHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.HireCollector(r.Context(), userID, machineID, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTO(res))
}

type coinBoxInfoResponse struct {
	Level        int                    `json:"level"`
	Capacity     decimal.Decimal        `json:"capacity"`
	Next         *settings.CoinBoxLevel `json:"next,omitempty"`
	NextCapacity decimal.Decimal        `json:"nextCapacity"`
	UpgradeCost  decimal.Decimal        `json:"upgradeCost"`
}

// CoinBoxInfoHandler handles GET /users/{userId}/machines/{machineId}/coinbox
func (h *HandlerProvider) CoinBoxInfoHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	info, err := h.machines.CoinBoxInfo(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, coinBoxInfoResponse{
		Level:        info.Level,
		Capacity:     info.Capacity,
		Next:         info.Next,
		NextCapacity: info.NextCapacity,
		UpgradeCost:  info.Cost,
	})
}

// UpgradeCoinBoxHandler handles POST /users/{userId}/machines/{machineId}/coinbox
func (h *HandlerProvider) UpgradeCoinBoxHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.UpgradeCoinBox(r.Context(), userID, machineID, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTO(res))
}

type tierUnlockInfoResponse struct {
	Tier            int             `json:"tier"`
	Fee             decimal.Decimal `json:"fee"`
	AlreadyUnlocked bool            `json:"alreadyUnlocked"`
	CanUnlock       bool            `json:"canUnlock"`
	MaxTierUnlocked int             `json:"maxTierUnlocked"`
}

type tierUnlockResponse struct {
	Tier      int                  `json:"tier"`
	Fee       decimal.Decimal      `json:"fee"`
	Breakdown fundsource.Breakdown `json:"breakdown"`
}

// tierFromPath writes the 400 itself.
func tierFromPath(w http.ResponseWriter, r *http.Request) (uint64, int, bool) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return 0, 0, false
	}

	tier, err := parseTierFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}

	return userID, tier, true
}

// TierUnlockInfoHandler handles GET /users/{userId}/tiers/{tier}/unlock
func (h *HandlerProvider) TierUnlockInfoHandler(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := tierFromPath(w, r)
	if !ok {
		return
	}

	info, err := h.machines.TierUnlockInfo(r.Context(), userID, tier)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tierUnlockInfoResponse{
		Tier:            info.Tier,
		Fee:             info.Fee,
		AlreadyUnlocked: info.AlreadyUnlocked,
		CanUnlock:       info.CanUnlock,
		MaxTierUnlocked: info.MaxTierUnlocked,
	})
}

// PurchaseTierUnlockHandler handles POST /users/{userId}/tiers/{tier}/unlock
func (h *HandlerProvider) PurchaseTierUnlockHandler(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := tierFromPath(w, r)
	if !ok {
		return
	}

	res, err := h.machines.PurchaseTierUnlock(r.Context(), userID, tier, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tierUnlockResponse{
		Tier:      res.Tier,
		Fee:       res.Fee,
		Breakdown: res.Breakdown,
	})
}

type overclockRequest struct {
	Multiplier decimal.Decimal `json:"multiplier"`
}

// OverclockHandler handles POST /users/{userId}/machines/{machineId}/overclock
func (h *HandlerProvider) OverclockHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	var req overclockRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !req.Multiplier.GreaterThan(decimal.NewFromInt(1)) {
		writeError(w, http.StatusBadRequest, "multiplier must be > 1")
		return
	}

	res, err := h.machines.PurchaseOverclock(r.Context(), userID, machineID, req.Multiplier, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTO(res))
}

package api

import (
	"net/http"
	"time"

	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/pricing"
)

// EarlySaleQuoteHandler handles GET /users/{userId}/machines/{machineId}/early-sale
func (h *HandlerProvider) EarlySaleQuoteHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	q, err := h.machines.EarlySaleQuote(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

type earlySaleResponse struct {
	Quote     pricing.EarlySaleQuote `json:"quote"`
	Breakdown fundsource.Breakdown   `json:"breakdown"`
}

// SellEarlyHandler handles POST /users/{userId}/machines/{machineId}/early-sale
func (h *HandlerProvider) SellEarlyHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.SellEarly(r.Context(), userID, machineID, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, earlySaleResponse{Quote: res.Quote, Breakdown: res.Breakdown})
}

// PawnshopQuoteHandler handles GET /users/{userId}/machines/{machineId}/pawnshop
func (h *HandlerProvider) PawnshopQuoteHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	q, err := h.machines.PawnshopQuote(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

type pawnshopResponse struct {
	Quote     pricing.PawnshopQuote `json:"quote"`
	Breakdown fundsource.Breakdown  `json:"breakdown"`
}

// SellToPawnshopHandler handles POST /users/{userId}/machines/{machineId}/pawnshop
func (h *HandlerProvider) SellToPawnshopHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.SellToPawnshop(r.Context(), userID, machineID, operationID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pawnshopResponse{Quote: res.Quote, Breakdown: res.Breakdown})
}

// AuctionQuoteHandler handles GET /users/{userId}/machines/{machineId}/auction
func (h *HandlerProvider) AuctionQuoteHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	q, err := h.machines.AuctionQuote(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

type listingResponse struct {
	Listing  *listingDTO `json:"listing"`
	Position int         `json:"position"`
	Queue    int         `json:"queue"`
}

// ListOnAuctionHandler handles POST /users/{userId}/machines/{machineId}/auction
func (h *HandlerProvider) ListOnAuctionHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	res, err := h.machines.ListOnAuction(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, listingResponse{
		Listing:  toListingDTO(res.Listing),
		Position: res.Position,
		Queue:    res.Queue,
	})
}

// CancelAuctionHandler handles DELETE /users/{userId}/machines/{machineId}/auction
func (h *HandlerProvider) CancelAuctionHandler(w http.ResponseWriter, r *http.Request) {
	userID, machineID, ok := userAndMachine(w, r)
	if !ok {
		return
	}

	err := h.machines.CancelAuctionListing(r.Context(), userID, machineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// SellerListingsHandler handles GET /users/{userId}/listings
func (h *HandlerProvider) SellerListingsHandler(w http.ResponseWriter, r *http.Request) {
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

	ls, err := h.machines.SellerListings(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]*listingDTO, 0, len(ls))
	for _, l := range ls {
		out = append(out, toListingDTO(l))
	}

	writeJSON(w, http.StatusOK, out)
}

type queueStatDTO struct {
	Tier     int       `json:"tier"`
	Pending  int       `json:"pending"`
	OldestAt time.Time `json:"oldestAt"`
}

// QueueSummaryHandler handles GET /auction/queues
func (h *HandlerProvider) QueueSummaryHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.machines.QueueSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]queueStatDTO, 0, len(stats))
	for _, s := range stats {
		out = append(out, queueStatDTO{Tier: s.Tier, Pending: s.Pending, OldestAt: s.OldestAt})
	}

	writeJSON(w, http.StatusOK, out)
}

type queueResponse struct {
	Tier   int         `json:"tier"`
	Length int         `json:"length"`
	Head   *listingDTO `json:"head,omitempty"`
}

// QueueHandler handles GET /auction/queues/{tier}
func (h *HandlerProvider) QueueHandler(w http.ResponseWriter, r *http.Request) {
	tier, err := parseTierFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.machines.Queue(r.Context(), tier)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queueResponse{Tier: q.Tier, Length: q.Length, Head: toListingDTO(q.Head)})
}

// EventsHandler handles GET /users/{userId}/ws
func (h *HandlerProvider) EventsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	if h.events == nil {
		writeError(w, http.StatusNotFound, "event stream disabled")
		return
	}

	h.events.Serve(w, r, userID)
}

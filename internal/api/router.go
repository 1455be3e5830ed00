package api

import (
	"net/http"

	"github.com/fastprodman/fortunefloor/internal/infra/metrics"
	"github.com/fastprodman/fortunefloor/internal/services/balance"
	"github.com/fastprodman/fortunefloor/internal/services/machines"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	_ MachineService = (*machines.Service)(nil)
	_ BalanceService = (*balance.BalanceService)(nil)
)

// NewRouter constructs a chi router with all API endpoints registered.
// limiter may be nil to disable throttling.
func NewRouter(h *HandlerProvider, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/tiers", h.TiersHandler)
	r.Get("/auction/queues", h.QueueSummaryHandler)
	r.Get("/auction/queues/{tier}", h.QueueHandler)

	throttle := func(next http.Handler) http.Handler { return next }
	if limiter != nil {
		throttle = limiter.Handler
	}

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/history", h.HistoryHandler)
		r.Get("/listings", h.SellerListingsHandler)
		r.Get("/ws", h.EventsHandler)
		r.Get("/tiers/{tier}/quote", h.PurchaseQuoteHandler)
		r.Get("/tiers/{tier}/unlock", h.TierUnlockInfoHandler)
		r.Get("/machines", h.ListMachinesHandler)

		r.With(throttle).Post("/transactions", h.ProcessTransactionHandler)
		r.With(throttle).Post("/machines", h.PurchaseHandler)
		r.With(throttle).Post("/tiers/{tier}/unlock", h.PurchaseTierUnlockHandler)

		r.Route("/machines/{machineId}", func(r chi.Router) {
			r.Get("/", h.MachineHandler)
			r.Get("/early-sale", h.EarlySaleQuoteHandler)
			r.Get("/pawnshop", h.PawnshopQuoteHandler)
			r.Get("/auction", h.AuctionQuoteHandler)
			r.Get("/gamble", h.GambleInfoHandler)
			r.Get("/coinbox", h.CoinBoxInfoHandler)

			r.Group(func(r chi.Router) {
				r.Use(throttle)

				r.Post("/collect", h.CollectHandler)
				r.Post("/early-sale", h.SellEarlyHandler)
				r.Post("/pawnshop", h.SellToPawnshopHandler)
				r.Post("/auction", h.ListOnAuctionHandler)
				r.Delete("/auction", h.CancelAuctionHandler)
				r.Post("/gamble", h.RiskyCollectHandler)
				r.Post("/gamble/upgrade", h.UpgradeGambleHandler)
				r.Post("/collector", h.HireCollectorHandler)
				r.Post("/coinbox", h.UpgradeCoinBoxHandler)
				r.Post("/overclock", h.OverclockHandler)
			})
		})
	})

	return r
}

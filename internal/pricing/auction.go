package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuctionQuote struct {
	WearPercent    decimal.Decimal `json:"wearPercent"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	TierPrice      decimal.Decimal `json:"tierPrice"`
	ExpectedPayout decimal.Decimal `json:"expectedPayout"`
}

// Wear is the elapsed share of the lifespan in percent, clamped to [0, 100].
func Wear(startedAt, expiresAt, now time.Time) decimal.Decimal {
	total := expiresAt.Sub(startedAt)
	if total <= 0 {
		return hundred
	}

	if now.After(expiresAt) {
		now = expiresAt
	}

	elapsed := now.Sub(startedAt)
	if elapsed <= 0 {
		return decimal.Zero
	}

	wear := decimal.NewFromInt(elapsed.Microseconds()).
		Div(decimal.NewFromInt(total.Microseconds())).
		Mul(hundred)

	return decimal.Min(wear, hundred)
}

// Auction prices a listing. The payout is derived from the current tier price and
// frozen on the listing.
func Auction(tierPrice decimal.Decimal, startedAt, expiresAt, now time.Time, bands []Band) AuctionQuote {
	wear := Wear(startedAt, expiresAt, now)
	rate := RateFor(bands, wear)

	return AuctionQuote{
		WearPercent:    wear,
		CommissionRate: rate,
		TierPrice:      tierPrice,
		ExpectedPayout: tierPrice.Mul(decimal.NewFromInt(1).Sub(rate)),
	}
}

package domain

type Status string

const (
	StatusActive        Status = "active"
	StatusExpired       Status = "expired"
	StatusSoldEarly     Status = "sold_early"
	StatusSoldAuction   Status = "sold_auction"
	StatusSoldPawnshop  Status = "sold_pawnshop"
	StatusListedAuction Status = "listed_auction"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusSoldEarly, StatusSoldAuction, StatusSoldPawnshop, StatusListedAuction:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusExpired, StatusSoldEarly, StatusSoldAuction, StatusSoldPawnshop:
		return true
	default:
		return false
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		switch next {
		case StatusExpired, StatusSoldEarly, StatusSoldAuction, StatusSoldPawnshop, StatusListedAuction:
			return true
		}
	case StatusListedAuction:
		switch next {
		case StatusActive, StatusSoldAuction, StatusExpired:
			return true
		}
	}

	return false
}

type ListingStatus string

const (
	ListingPending   ListingStatus = "pending"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
	ListingExpired   ListingStatus = "expired"
)

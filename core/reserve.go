package core

import (
	"github.com/shopspring/decimal"
)

// BidMeetsReserve returns true if the bid meets or exceeds the reserve price.
// Amounts are whole base units, so the comparison is exact.
func BidMeetsReserve(bid, reserve decimal.Decimal) bool {
	return bid.GreaterThanOrEqual(reserve)
}

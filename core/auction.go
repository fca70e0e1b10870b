package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MinimumTotalBid returns the smallest total standing bid the auction accepts next.
//
// Rules:
//  1. No bid yet: the reserve price.
//  2. Otherwise: amount + floor(amount * increment / Precision), never below the reserve.
func MinimumTotalBid(record *AuctionRecord) decimal.Decimal {
	reserve := record.Params.ReservePrice
	if record.Amount.IsZero() {
		return reserve
	}

	next := record.Amount.Add(ApplyPercentage(record.Amount, record.Params.MinBidIncrementPercentage))
	return decimal.Max(next, reserve)
}

// AvailableFunds returns what account already has committed to the auction:
// its pending return plus its standing bid if it is the current high bidder.
func AvailableFunds(record *AuctionRecord, pending decimal.Decimal, account Address) decimal.Decimal {
	if !account.IsZero() && record.Bidder == account {
		return pending.Add(record.Amount)
	}
	return pending
}

// MinimumAdditionalBid returns how much new money account must bring to place
// the minimum total bid, after netting its existing commitment.
func MinimumAdditionalBid(record *AuctionRecord, pending decimal.Decimal, account Address) decimal.Decimal {
	additional := MinimumTotalBid(record).Sub(AvailableFunds(record, pending, account))
	if additional.IsNegative() {
		return decimal.Zero
	}
	return additional
}

// CheckBid validates total against the acceptance arithmetic used by MinimumTotalBid.
func CheckBid(record *AuctionRecord, total decimal.Decimal) error {
	if !IsWholeAmount(total) {
		return ErrInvalidAmount
	}
	if !BidMeetsReserve(total, record.Params.ReservePrice) {
		return fmt.Errorf("%w: bid %s, reserve %s", ErrBelowReserve, total, record.Params.ReservePrice)
	}
	if minimum := MinimumTotalBid(record); total.LessThan(minimum) {
		return fmt.Errorf("%w: bid %s, minimum %s", ErrBidTooLow, total, minimum)
	}
	return nil
}

// ExtendedEndTime returns the end time after a bid lands at now, and whether it moved.
// The window only moves forward, and only when the bid falls inside the time buffer.
func ExtendedEndTime(record *AuctionRecord, now time.Time) (time.Time, bool) {
	if record.EndTime.Sub(now) < record.Params.TimeBuffer {
		return now.Add(record.Params.TimeBuffer), true
	}
	return record.EndTime, false
}

// SplitFee splits amount into the house fee and the remaining proceeds.
func SplitFee(amount, feePercentage decimal.Decimal) (fee, proceeds decimal.Decimal) {
	fee = ApplyPercentage(amount, feePercentage)
	return fee, amount.Sub(fee)
}

// InstabuyReached reports whether total triggers the auction's instabuy.
func InstabuyReached(params *AuctionParameters, total decimal.Decimal) bool {
	return params.InstabuyPrice.IsPositive() && total.GreaterThanOrEqual(params.InstabuyPrice)
}

// ValidateParameters checks auction parameters before an auction is created with them.
func ValidateParameters(params AuctionParameters) error {
	if params.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidParams)
	}
	if params.TimeBuffer < 0 {
		return fmt.Errorf("%w: time buffer must not be negative", ErrInvalidParams)
	}
	if !IsWholeAmount(params.ReservePrice) {
		return fmt.Errorf("%w: reserve price %s", ErrInvalidParams, params.ReservePrice)
	}
	if !IsValidPercentage(params.MinBidIncrementPercentage) {
		return fmt.Errorf("%w: min bid increment %s", ErrInvalidParams, params.MinBidIncrementPercentage)
	}
	if !IsWholeAmount(params.InstabuyPrice) {
		return fmt.Errorf("%w: instabuy price %s", ErrInvalidParams, params.InstabuyPrice)
	}
	if params.InstabuyPrice.IsPositive() && params.InstabuyPrice.LessThan(params.ReservePrice) {
		return fmt.Errorf("%w: instabuy price below reserve", ErrInvalidParams)
	}
	return nil
}

// ValidateMetadata rejects content hashes longer than MaxMetadataLength.
func ValidateMetadata(metadata string) error {
	if len(metadata) > MaxMetadataLength {
		return fmt.Errorf("%w: %d bytes, max %d", ErrMetadataTooLong, len(metadata), MaxMetadataLength)
	}
	return nil
}

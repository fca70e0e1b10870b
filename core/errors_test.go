package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{ErrAuctionNotFound, "not_found"},
		{ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("settle 3: %w", ErrNotYetExpired), "invalid_state"},
		{ErrBidTooLow, "validation_failure"},
		{ErrSlippage, "slippage_exceeded"},
		{ErrInsufficientBalance, "transfer_failure"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		check.Equal(t, tt.expected, ErrorClass(tt.err))
	}
}

func TestParsePermission(t *testing.T) {
	for p := PermissionNone; p <= PermissionBoth; p++ {
		parsed, err := ParsePermission(p.String())
		check.NoError(t, err)
		check.Equal(t, p, parsed)
	}

	_, err := ParsePermission("admin")
	check.True(t, errors.Is(err, ErrValidation))
}

package houseapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

func TestAuctionParams_CoreRoundTrip(t *testing.T) {
	wire := AuctionParams{
		TimeBufferSeconds:         300,
		ReservePrice:              decimal.NewFromInt(100),
		MinBidIncrementPercentage: core.PercentOf(10),
		DurationSeconds:           3600,
		InstabuyPrice:             decimal.NewFromInt(5000),
		Beneficiary:               "carol",
	}

	params := wire.Core()
	check.Equal(t, 300*time.Second, params.TimeBuffer)
	check.Equal(t, time.Hour, params.Duration)
	check.Equal(t, core.Address("carol"), params.Beneficiary)
	check.NoError(t, core.ValidateParameters(params))

	back := ParamsFromCore(params)
	check.Equal(t, wire.DurationSeconds, back.DurationSeconds)
	check.Equal(t, wire.TimeBufferSeconds, back.TimeBufferSeconds)
	check.True(t, wire.ReservePrice.Equal(back.ReservePrice))
}

func TestBidRequest_Decode(t *testing.T) {
	raw := `{"type":"create_bid","request_id":"r1","caller":"alice","auction_id":3,"amount":"110","on_behalf_of":"bob"}`

	var req BidRequest
	assert.NoError(t, json.Unmarshal([]byte(raw), &req))
	check.Equal(t, TypeCreateBid, req.Type)
	check.Equal(t, "r1", req.RequestID)
	check.Equal(t, uint64(3), req.AuctionID)
	check.Equal(t, "110", req.Amount.String())
	check.Equal(t, core.Address("bob"), req.OnBehalfOf)
	check.True(t, req.AmountIn.IsZero())
}

func TestResponse_Decode(t *testing.T) {
	resp, err := NewResponse(TypeCreateAuction, "r2", CreatedResult{AuctionID: 7})
	assert.NoError(t, err)

	data, err := json.Marshal(resp)
	assert.NoError(t, err)

	var decoded Response
	assert.NoError(t, json.Unmarshal(data, &decoded))
	check.True(t, decoded.Success)

	var created CreatedResult
	assert.NoError(t, decoded.Decode(&created))
	check.Equal(t, uint64(7), created.AuctionID)
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("r3", fmt.Errorf("settle 1: %w", core.ErrNotYetExpired))

	check.Equal(t, "error", resp.Type)
	check.False(t, resp.Success)
	check.Equal(t, "invalid_state", resp.Code)

	var v CreatedResult
	err := resp.Decode(&v)
	check.Error(t, err)
	check.False(t, errors.Is(err, core.ErrInvalidState))
}

func TestResponse_DecodeEmptyResult(t *testing.T) {
	resp, err := NewResponse(TypePing, "", nil)
	assert.NoError(t, err)

	var v CreatedResult
	check.Error(t, resp.Decode(&v))
}

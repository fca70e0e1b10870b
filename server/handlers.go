package server

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/houseapi"
	"github.com/cloudx-io/auctionhouse/receipt"
)

type handlerFunc func(s *Server, raw []byte) (any, error)

var handlers = map[string]handlerFunc{
	houseapi.TypePing:              (*Server).ping,
	houseapi.TypeCreateAuction:     (*Server).createAuction,
	houseapi.TypeCreateBid:         (*Server).createBid,
	houseapi.TypeUpdateBidMetadata: (*Server).updateBidMetadata,
	houseapi.TypeSettleAuction:     (*Server).settleAuction,
	houseapi.TypeNullifyAuction:    (*Server).nullifyAuction,
	houseapi.TypeWithdraw:          (*Server).withdraw,
	houseapi.TypeWithdrawStale:     (*Server).withdrawStale,
	houseapi.TypeSetApproval:       (*Server).setApproval,
	houseapi.TypeAdmin:             (*Server).admin,
	houseapi.TypeAuction:           (*Server).auction,
	houseapi.TypePendingReturns:    (*Server).pendingReturns,
	houseapi.TypeQuote:             (*Server).quote,
	houseapi.TypeReceipt:           (*Server).receipt,
	houseapi.TypePublicKey:         (*Server).publicKey,
	houseapi.TypeJournal:           (*Server).journalPage,
}

func (s *Server) ping(_ []byte) (any, error) {
	return map[string]any{
		"message":   "auction house is healthy",
		"timestamp": s.now().Unix(),
		"paused":    s.paused(),
	}, nil
}

func (s *Server) paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.house.Paused()
}

func (s *Server) createAuction(raw []byte) (any, error) {
	var req houseapi.CreateAuctionRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	params := s.house.Defaults()
	if req.Params != nil {
		params = req.Params.Core()
	}

	var id uint64
	var err error
	switch {
	case req.Deadline != nil:
		id, err = s.house.CreateAuctionByDeadline(req.Caller, params, *req.Deadline, req.Metadata)
	case req.Params != nil:
		id, err = s.house.CreateCustomAuction(req.Caller, params, req.Metadata)
	default:
		id, err = s.house.CreateAuction(req.Caller, req.Metadata)
	}
	if err != nil {
		return nil, err
	}
	return houseapi.CreatedResult{AuctionID: id}, nil
}

func (s *Server) createBid(raw []byte) (any, error) {
	var req houseapi.BidRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if req.Token != "" {
		err = s.house.CreateBidWithAlternateToken(req.Caller, req.AuctionID, req.Token, req.AmountIn, req.Amount, req.Metadata, req.OnBehalfOf)
	} else {
		err = s.house.CreateBid(req.Caller, req.AuctionID, req.Amount, req.Metadata, req.OnBehalfOf)
	}
	if err != nil {
		return nil, err
	}
	return s.view(req.AuctionID, bidderOf(req.Caller, req.OnBehalfOf))
}

func (s *Server) updateBidMetadata(raw []byte) (any, error) {
	var req houseapi.BidRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.house.UpdateBidMetadata(req.Caller, req.AuctionID, req.Metadata, req.OnBehalfOf); err != nil {
		return nil, err
	}
	return s.view(req.AuctionID, bidderOf(req.Caller, req.OnBehalfOf))
}

func bidderOf(caller, onBehalfOf core.Address) core.Address {
	if onBehalfOf.IsZero() {
		return caller
	}
	return onBehalfOf
}

func (s *Server) settleAuction(raw []byte) (any, error) {
	var req houseapi.AuctionRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.house.SettleAuction(req.Caller, req.AuctionID); err != nil {
		return nil, err
	}
	return s.view(req.AuctionID, "")
}

func (s *Server) nullifyAuction(raw []byte) (any, error) {
	var req houseapi.AuctionRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.house.NullifyAuction(req.Caller, req.AuctionID); err != nil {
		return nil, err
	}
	return s.view(req.AuctionID, "")
}

func (s *Server) withdraw(raw []byte) (any, error) {
	var req houseapi.WithdrawRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var amount decimal.Decimal
	var err error
	switch len(req.AuctionIDs) {
	case 0:
		return nil, fmt.Errorf("%w: no auction ids", core.ErrValidation)
	case 1:
		amount, err = s.house.Withdraw(req.Caller, req.AuctionIDs[0], req.OnBehalfOf)
	default:
		amount, err = s.house.WithdrawMultiple(req.Caller, req.AuctionIDs, req.OnBehalfOf)
	}
	if err != nil {
		return nil, err
	}
	return houseapi.AmountResult{Amount: amount}, nil
}

func (s *Server) withdrawStale(raw []byte) (any, error) {
	var req houseapi.WithdrawStaleRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.house.WithdrawStale(req.Caller, req.Users)
	if err != nil {
		return nil, err
	}
	return houseapi.AmountResult{Amount: amount}, nil
}

func (s *Server) setApproval(raw []byte) (any, error) {
	var req houseapi.ApprovalRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	status, err := core.ParsePermission(req.Status)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return nil, s.house.SetApprovedCaller(req.Caller, req.Delegate, status)
}

func (s *Server) admin(raw []byte) (any, error) {
	var req houseapi.AdminRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	seconds := time.Duration(req.Seconds) * time.Second

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.house
	switch req.Action {
	case houseapi.ActionSetFeeReceiver:
		return nil, h.SetFeeReceiver(req.Caller, req.Address)
	case houseapi.ActionSetFeePercent:
		return nil, h.SetFeePercent(req.Caller, req.Amount)
	case houseapi.ActionSetDefaultTimeBuffer:
		return nil, h.SetDefaultTimeBuffer(req.Caller, seconds)
	case houseapi.ActionSetDefaultReservePrice:
		return nil, h.SetDefaultReservePrice(req.Caller, req.Amount)
	case houseapi.ActionSetDefaultMinBidIncrement:
		return nil, h.SetDefaultMinBidIncrement(req.Caller, req.Amount)
	case houseapi.ActionSetDefaultDuration:
		return nil, h.SetDefaultDuration(req.Caller, seconds)
	case houseapi.ActionSetAuctionManager:
		return nil, h.SetAuctionManager(req.Caller, req.Address, req.Enabled)
	case houseapi.ActionSetTrustedRouter:
		return nil, h.SetTrustedRouter(req.Caller, req.Address)
	case houseapi.ActionDisableToken:
		return nil, h.SetTokenSupport(req.Caller, req.Token, nil)
	case houseapi.ActionPause:
		return nil, h.Pause(req.Caller)
	case houseapi.ActionUnpause:
		return nil, h.Unpause(req.Caller)
	case houseapi.ActionRecoverTokens:
		return nil, h.RecoverTokens(req.Caller, req.Token, req.Amount, req.Address)
	default:
		return nil, fmt.Errorf("%w: unknown admin action %q", core.ErrValidation, req.Action)
	}
}

func (s *Server) auction(raw []byte) (any, error) {
	var req houseapi.AuctionRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(req.AuctionID, req.User)
}

// view builds an AuctionView. Callers hold mu.
func (s *Server) view(id uint64, user core.Address) (*houseapi.AuctionView, error) {
	h := s.house
	rec, err := h.Auction(id)
	if err != nil {
		return nil, err
	}
	live, _ := h.IsAuctionLive(id)
	remaining, _ := h.AuctionRemainingTime(id)
	minimum, _ := h.MinimumTotalBid(id)

	v := &houseapi.AuctionView{
		ID:               rec.ID,
		Amount:           rec.Amount,
		Bidder:           rec.Bidder,
		StartTime:        rec.StartTime,
		EndTime:          rec.EndTime,
		Settled:          rec.Settled,
		Metadata:         rec.Metadata,
		Params:           houseapi.ParamsFromCore(rec.Params),
		Live:             live,
		RemainingSeconds: int64(remaining / time.Second),
		MinimumTotalBid:  minimum,
	}
	if user.IsZero() {
		return v, nil
	}

	bid, _ := h.AuctionBidByUser(id, user)
	pending, _ := h.AuctionPendingReturns(id, user)
	raise, _ := h.MinimumAdditionalBidForUser(id, user)
	v.UserBid = &bid
	v.UserPending = &pending
	v.UserMinimumRaise = &raise
	v.UserBidMetadata, _ = h.BidMetadata(id, user)
	return v, nil
}

func (s *Server) pendingReturns(raw []byte) (any, error) {
	var req houseapi.PendingReturnsRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := houseapi.PendingReturnsResult{User: req.User, AuctionID: req.AuctionID}
	if req.AuctionID == 0 {
		result.Amount = s.house.PendingReturns(req.User)
		return result, nil
	}
	amount, err := s.house.AuctionPendingReturns(req.AuctionID, req.User)
	if err != nil {
		return nil, err
	}
	result.Amount = amount
	return result, nil
}

func (s *Server) quote(raw []byte) (any, error) {
	var req houseapi.QuoteRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var amount decimal.Decimal
	var err error
	switch req.Direction {
	case houseapi.QuoteOut:
		amount, err = s.house.QuoteOut(req.Token, req.Amount)
	case houseapi.QuoteIn:
		amount, err = s.house.QuoteIn(req.Token, req.Amount)
	case houseapi.QuoteSafeIn:
		amount, err = s.house.SafeQuoteIn(req.Token, req.Amount)
	default:
		return nil, fmt.Errorf("%w: unknown quote direction %q", core.ErrValidation, req.Direction)
	}
	if err != nil {
		return nil, err
	}
	return houseapi.QuoteResult{Token: req.Token, Direction: req.Direction, Amount: amount}, nil
}

func (s *Server) receipt(raw []byte) (any, error) {
	var req houseapi.AuctionRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if s.issuer == nil {
		return nil, fmt.Errorf("%w: receipts are disabled", core.ErrNotFound)
	}

	signed, ok := s.issuer.Receipt(req.AuctionID)
	if !ok {
		return nil, fmt.Errorf("%w: no receipt for auction %d", core.ErrNotFound, req.AuctionID)
	}
	compressed, err := signed.CompressGzip()
	if err != nil {
		return nil, err
	}
	return houseapi.ReceiptResult{
		AuctionID:         req.AuctionID,
		ReceiptCOSEBase64: signed.EncodeBase64(),
		ReceiptCOSEGzip:   compressed,
	}, nil
}

func (s *Server) publicKey(_ []byte) (any, error) {
	if s.issuer == nil {
		return nil, fmt.Errorf("%w: receipts are disabled", core.ErrNotFound)
	}
	pemStr, err := s.issuer.Signer().PublicKeyPEM()
	if err != nil {
		return nil, err
	}
	return houseapi.PublicKeyResult{Algorithm: receipt.Algorithm, PublicKey: pemStr}, nil
}

func (s *Server) journalPage(raw []byte) (any, error) {
	var req houseapi.JournalRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return nil, fmt.Errorf("%w: journal is disabled", core.ErrNotFound)
	}

	entries := s.journal.Since(req.After)
	if len(entries) > maxJournalPage {
		entries = entries[:maxJournalPage]
	}
	return houseapi.JournalResult{RunID: s.journal.RunID(), Head: s.journal.Head(), Entries: entries}, nil
}

package bidding

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// State is where a view is in its lifecycle
type State string

const (
	StateLoading    State = "loading"
	StateEmpty      State = "empty"
	StateListing    State = "listing"
	StateSubmitting State = "submitting"
	StateAccepting  State = "accepting"
	StateAccepted   State = "accepted"
)

// Notice is a non-blocking message for the user
type Notice struct {
	Level   string    `json:"level"` // info, success, warning, error
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

const maxNotices = 5

// ProfileReturn is handed back to the investor profile when leaving a bid view
type ProfileReturn struct {
	HasBidded       bool  `json:"hasBidded"`
	BiddedProductID int64 `json:"biddedProductId"`
}

// DetailReturn is handed to the innovation detail view after an accept view
type DetailReturn struct {
	SelectedBid *types.Bid `json:"selectedBid"`
	InventionID int64      `json:"inventionId"`
}

// BidSummary compares the listed bids when there is more than one
type BidSummary struct {
	HighestBidAmount decimal.Decimal `json:"highestBidAmount"`
	LowestEquity     decimal.Decimal `json:"lowestEquity"`
}

// viewBase holds what bid and accept views share: identity, state, notices
// and the generation that makes responses from before a close harmless
type viewBase struct {
	id        string
	sessionID string
	api       API
	now       func() time.Time

	mu         sync.Mutex
	state      State
	bids       []types.Bid
	notices    []Notice
	generation uint64
	fetchSeq   uint64
	closed     bool
}

func newViewBase(sessionID string, api API, now func() time.Time) viewBase {
	return viewBase{
		id:        uuid.New().String(),
		sessionID: sessionID,
		api:       api,
		now:       now,
		state:     StateLoading,
		bids:      []types.Bid{},
	}
}

// ID returns the view id used in portal URLs
func (b *viewBase) ID() string { return b.id }

func (b *viewBase) owner() string { return b.sessionID }

// State returns the current state
func (b *viewBase) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close ends the view. Responses to calls started before Close are dropped.
func (b *viewBase) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.generation++
}

// Closed reports whether Close has been called
func (b *viewBase) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *viewBase) notify(level, message, detail string) {
	b.notices = append(b.notices, Notice{Level: level, Message: message, Detail: detail, At: b.now()})
	if len(b.notices) > maxNotices {
		b.notices = b.notices[len(b.notices)-maxNotices:]
	}
}

// stale reports whether a result of a call started at generation gen must be
// dropped. Callers hold mu.
func (b *viewBase) stale(gen uint64) bool {
	return b.closed || gen != b.generation
}

// settle moves an idle view to listing or empty after its list changed
func (b *viewBase) settle() {
	switch b.state {
	case StateLoading, StateEmpty, StateListing:
		if len(b.bids) == 0 {
			b.state = StateEmpty
		} else {
			b.state = StateListing
		}
	}
}

func (b *viewBase) copyBids() []types.Bid {
	out := make([]types.Bid, len(b.bids))
	copy(out, b.bids)
	return out
}

func (b *viewBase) copyNotices() []Notice {
	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

// BidView is one investor's bid screen for one product
type BidView struct {
	viewBase

	product    types.Product
	investorID int64
	sess       *session.Session
	pendingTTL time.Duration

	navHasBidded bool
	hasBid       bool
	pending      []PendingBid
	fieldErrors  map[string]string
	loaded       bool
}

func newBidView(sess *session.Session, api API, product types.Product, investorID int64, hasBidded bool, pendingTTL time.Duration, now func() time.Time) *BidView {
	return &BidView{
		viewBase:     newViewBase(sess.ID, api, now),
		product:      product,
		investorID:   investorID,
		sess:         sess,
		pendingTTL:   pendingTTL,
		navHasBidded: hasBidded,
		hasBid:       hasBidded,
	}
}

// HasBid reports whether the investor has a bid on this product. Once true it
// stays true for the life of the view.
func (v *BidView) HasBid() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hasBid
}

// Bids returns a copy of the listed bids
func (v *BidView) Bids() []types.Bid {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.copyBids()
}

// Refresh fetches the bid list and reconciles it with bids placed from this
// view. A failed fetch is reported as a warning notice and never leaves the
// view loading. Only the newest of overlapping refreshes is applied.
func (v *BidView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	gen := v.generation
	v.fetchSeq++
	seq := v.fetchSeq
	v.mu.Unlock()

	logger := log.With().
		Str("view_id", v.id).
		Int64("invention_id", v.product.InventionID).
		Logger()

	resp, err := v.api.GetBidsByInventionID(ctx, v.product.InventionID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stale(gen) {
		logger.Debug().Msg("dropping bid list for closed view")
		return ErrViewClosed
	}
	if seq != v.fetchSeq {
		logger.Debug().Msg("dropping superseded bid list")
		return nil
	}

	if err != nil {
		logger.Warn().Err(err).Msg("failed to fetch bids")
		v.notify("warning", MsgLoadFailed, err.Error())
		if !v.loaded {
			v.bids = []types.Bid{}
			v.loaded = true
		}
		v.settle()
		return nil
	}

	result := Reconcile(resp.Bids, v.pending, v.investorID, v.now(), v.pendingTTL)
	v.bids = result.Bids
	v.pending = result.Pending
	v.loaded = true

	if HasExistingBid(v.bids, v.navHasBidded) {
		v.hasBid = true
	}

	serverHasMine := anyMine(AnnotateOwnership(resp.Bids, v.investorID))
	switch {
	case serverHasMine:
		v.sess.MarkBidded(v.product.InventionID)
	case len(result.Expired) > 0 && len(result.Pending) == 0:
		v.sess.ForgetBidded(v.product.InventionID)
		for _, p := range result.Expired {
			logger.Warn().
				Str("order_id", p.Bid.OrderID.String()).
				Msg("placed bid never appeared in the bid list")
		}
		v.notify("warning", "Your recent bid could not be confirmed by the bidding service", "")
	}

	v.settle()
	return nil
}

// SubmitBid validates the form values and places the bid. The new bid is
// added to the list only after the service confirms it.
func (v *BidView) SubmitBid(ctx context.Context, bidAmount, equity string) (*types.Bid, error) {
	v.mu.Lock()
	switch {
	case v.closed:
		v.mu.Unlock()
		return nil, ErrViewClosed
	case v.state == StateSubmitting:
		v.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case v.hasBid:
		v.mu.Unlock()
		return nil, ErrAlreadyBid
	case !v.product.IsLive:
		v.mu.Unlock()
		return nil, ErrBiddingClosed
	case v.state == StateLoading:
		v.mu.Unlock()
		return nil, ErrViewLoading
	}

	validation := ValidateBidInput(bidAmount, equity)
	if !validation.Valid {
		v.fieldErrors = validation.Errors
		v.mu.Unlock()
		return nil, &ValidationError{Fields: validation.Errors}
	}
	v.fieldErrors = nil

	prev := v.state
	v.state = StateSubmitting
	gen := v.generation
	v.mu.Unlock()

	req := types.PlaceBidRequest{
		InventionID: v.product.InventionID,
		InvestorID:  v.investorID,
		BidAmount:   validation.BidAmount,
		Equity:      validation.Equity,
	}
	placed, err := v.api.PlaceBid(ctx, req)

	v.mu.Lock()
	defer v.mu.Unlock()
	logger := log.With().
		Str("view_id", v.id).
		Int64("invention_id", v.product.InventionID).
		Logger()

	if v.stale(gen) {
		logger.Debug().Msg("dropping bid placement result for closed view")
		return nil, ErrViewClosed
	}
	if err != nil {
		v.state = prev
		v.notify("error", MsgSubmitFailed, err.Error())
		submissions.WithLabelValues("failed").Inc()
		logger.Warn().Err(err).Msg("failed to place bid")
		return nil, &ActionError{Message: MsgSubmitFailed, Err: err}
	}

	bid := types.Bid{
		OrderID:     placed.OrderID,
		InventionID: v.product.InventionID,
		InvestorID:  v.investorID,
		BidAmount:   validation.BidAmount,
		Equity:      validation.Equity,
		IsMine:      true,
	}
	if bid.OrderID.IsZero() {
		bid.OrderID = types.OrderID(localIDPrefix + uuid.New().String())
	}

	v.bids = append([]types.Bid{bid}, v.bids...)
	v.pending = append(v.pending, PendingBid{Bid: bid, PlacedAt: v.now()})
	v.hasBid = true
	v.state = StateListing
	v.sess.MarkBidded(v.product.InventionID)
	v.notify("success", "Bid Placed Successfully!", "Thank you for placing the bid. You will be notified once the inventor approves your bid.")
	submissions.WithLabelValues("placed").Inc()

	logger.Info().
		Str("order_id", bid.OrderID.String()).
		Str("bid_amount", bid.BidAmount.String()).
		Str("equity", bid.Equity.String()).
		Msg("bid placed")

	return &bid, nil
}

// Back closes the view and returns the state the investor profile resumes with
func (v *BidView) Back() ProfileReturn {
	v.mu.Lock()
	ret := ProfileReturn{
		HasBidded:       v.hasBid,
		BiddedProductID: v.product.InventionID,
	}
	v.mu.Unlock()

	v.Close()
	return ret
}

// AcceptView is an innovator's screen for choosing a bid on one invention
type AcceptView struct {
	viewBase

	inventionID int64
	title       string
	sess        *session.Session
	selected    *types.Bid
}

func newAcceptView(sess *session.Session, api API, inventionID int64, title string, now func() time.Time) *AcceptView {
	return &AcceptView{
		viewBase:    newViewBase(sess.ID, api, now),
		inventionID: inventionID,
		title:       title,
		sess:        sess,
	}
}

// Refresh fetches the bid list. Failures leave an empty list and a warning.
func (v *AcceptView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	gen := v.generation
	v.fetchSeq++
	seq := v.fetchSeq
	v.mu.Unlock()

	logger := log.With().
		Str("view_id", v.id).
		Int64("invention_id", v.inventionID).
		Logger()

	resp, err := v.api.GetBidsByInventionID(ctx, v.inventionID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stale(gen) {
		logger.Debug().Msg("dropping bid list for closed view")
		return ErrViewClosed
	}
	if seq != v.fetchSeq {
		logger.Debug().Msg("dropping superseded bid list")
		return nil
	}

	if err != nil {
		logger.Warn().Err(err).Msg("failed to fetch bids")
		v.notify("warning", MsgLoadFailed, err.Error())
		if v.state == StateLoading {
			v.bids = []types.Bid{}
		}
		v.settle()
		return nil
	}

	// ownership is an investor concern
	v.bids = AnnotateOwnership(resp.Bids, 0)
	v.settle()
	return nil
}

// Accept selects the bid with the given order id. A missing id is rejected
// without calling the bidding service.
func (v *AcceptView) Accept(ctx context.Context, orderID types.OrderID) (*DetailReturn, error) {
	if orderID.IsZero() {
		return nil, &ValidationError{Fields: map[string]string{FieldOrderID: MsgMissingOrderID}}
	}

	v.mu.Lock()
	switch {
	case v.closed:
		v.mu.Unlock()
		return nil, ErrViewClosed
	case v.state == StateAccepting:
		v.mu.Unlock()
		return nil, ErrAcceptInFlight
	case v.state == StateAccepted:
		v.mu.Unlock()
		return nil, ErrAlreadyAccepted
	case v.state == StateLoading:
		v.mu.Unlock()
		return nil, ErrViewLoading
	}

	idx := -1
	for i, bid := range v.bids {
		if bid.OrderID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		v.mu.Unlock()
		return nil, ErrBidNotFound
	}
	chosen := v.bids[idx]

	prev := v.state
	v.state = StateAccepting
	gen := v.generation
	v.mu.Unlock()

	_, err := v.api.SelectBid(ctx, orderID)

	v.mu.Lock()
	defer v.mu.Unlock()
	logger := log.With().
		Str("view_id", v.id).
		Int64("invention_id", v.inventionID).
		Str("order_id", orderID.String()).
		Logger()

	if v.stale(gen) {
		logger.Debug().Msg("dropping bid acceptance result for closed view")
		return nil, ErrViewClosed
	}
	if err != nil {
		v.state = prev
		v.notify("error", MsgAcceptFailed, err.Error())
		acceptances.WithLabelValues("failed").Inc()
		logger.Warn().Err(err).Msg("failed to accept bid")
		return nil, &ActionError{Message: MsgAcceptFailed, Err: err}
	}

	chosen.Selected = true
	for i := range v.bids {
		if v.bids[i].OrderID == orderID {
			v.bids[i].Selected = true
		}
	}
	v.selected = &chosen
	v.state = StateAccepted

	ret := DetailReturn{SelectedBid: &chosen, InventionID: v.inventionID}
	v.sess.SetHandoff(session.DetailHandoffKey(v.inventionID), ret)
	v.notify("success", "Bid Accepted!", "Congratulations for accepting the bid. We will notify the investor via email. Stay tuned!")
	acceptances.WithLabelValues("accepted").Inc()

	logger.Info().Int64("investor_id", chosen.InvestorID).Msg("bid accepted")
	return &ret, nil
}

// Summary compares the listed bids, or returns nil with fewer than two
func (v *AcceptView) Summary() *BidSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.summary()
}

func (v *AcceptView) summary() *BidSummary {
	if len(v.bids) < 2 {
		return nil
	}
	highest := v.bids[0].BidAmount
	lowest := v.bids[0].Equity
	for _, bid := range v.bids[1:] {
		if bid.BidAmount.GreaterThan(highest) {
			highest = bid.BidAmount
		}
		if bid.Equity.LessThan(lowest) {
			lowest = bid.Equity
		}
	}
	return &BidSummary{HighestBidAmount: highest, LowestEquity: lowest}
}

// Back closes the view and returns the state the detail view resumes with
func (v *AcceptView) Back() DetailReturn {
	v.mu.Lock()
	ret := DetailReturn{SelectedBid: v.selected, InventionID: v.inventionID}
	v.mu.Unlock()

	v.Close()
	return ret
}

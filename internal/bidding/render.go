package bidding

import (
	"fmt"

	"github.com/ksred/innovest-portal/internal/types"
	"github.com/ksred/innovest-portal/internal/ui"
)

// Button actions the browser posts back
const (
	ActionSubmitBid  = "submit_bid"
	ActionShowMyBid  = "show_my_bid"
	ActionBack       = "back"
	ActionAcceptBid  = "accept_bid"
	ActionBackDetail = "back_to_detail"
)

// BidViewSnapshot is what the browser receives for a bid view
type BidViewSnapshot struct {
	ViewID      string            `json:"viewId"`
	State       State             `json:"state"`
	Product     types.Product     `json:"product"`
	InvestorID  int64             `json:"investorId"`
	Bids        []types.Bid       `json:"bids"`
	HasBid      bool              `json:"hasBid"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Notices     []Notice          `json:"notices"`
	View        ui.Card           `json:"view"`
}

// AcceptViewSnapshot is what the browser receives for an accept view
type AcceptViewSnapshot struct {
	ViewID      string      `json:"viewId"`
	State       State       `json:"state"`
	InventionID int64       `json:"inventionId"`
	Bids        []types.Bid `json:"bids"`
	SelectedBid *types.Bid  `json:"selectedBid,omitempty"`
	Summary     *BidSummary `json:"summary,omitempty"`
	Notices     []Notice    `json:"notices"`
	View        ui.Card     `json:"view"`
}

// Snapshot returns the current state of the view with its rendered card
func (v *BidView) Snapshot() BidViewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return BidViewSnapshot{
		ViewID:      v.id,
		State:       v.state,
		Product:     v.product,
		InvestorID:  v.investorID,
		Bids:        v.copyBids(),
		HasBid:      v.hasBid,
		FieldErrors: v.fieldErrors,
		Notices:     v.copyNotices(),
		View:        v.render(),
	}
}

func (v *BidView) render() ui.Card {
	page := ui.Card{ID: v.id, Title: "Place a Bid", Description: "Submit your investment proposal for this invention"}
	if v.hasBid {
		page.Title = "View Bid Details"
		page.Description = "View your bid and track its status"
	}
	page.Add(ui.Button{Label: "Back to Profile", Action: ActionBack, Variant: "outline"})

	if v.state == StateLoading {
		page.Add(ui.Label{Text: "Loading bids...", Tone: "muted"})
		return page
	}

	product := ui.Card{Title: fmt.Sprintf("Invention #%d", v.product.InventionID)}
	product.Add(
		ui.Label{Text: v.product.ProductDescription},
		ui.Label{Text: "Expected Capital: " + ui.Money(v.product.ExpectedCapital)},
		ui.Label{Text: "Bid Started: " + orNotSet(v.product.BidStartDate)},
	)
	page.Add(product)

	list := ui.Card{ID: "bids-section", Title: "Current Bids"}
	if len(v.bids) == 0 {
		list.Add(ui.Label{Text: "No bids have been placed yet. Be the first to invest!", Tone: "muted"})
	}
	for _, bid := range v.bids {
		list.Add(bidLabel(bid, true))
	}
	page.Add(list)

	if v.hasBid {
		status := ui.Card{Title: "Your Bid Status"}
		status.Add(
			ui.Label{Text: "Bid Placed Successfully", Tone: "success"},
			ui.Label{Text: "You have already placed a bid on this invention. You will be notified when the inventor reviews your proposal."},
			ui.Button{Label: "Show My Bid", Action: ActionShowMyBid},
			ui.Button{Label: "Back to Profile", Action: ActionBack},
		)
		page.Add(status)
		return page
	}

	if !v.product.IsLive {
		closed := ui.Card{Title: "Submit Your Bid"}
		closed.Add(ui.Label{Text: "Bidding is not open for this product", Tone: "muted"})
		page.Add(closed)
		return page
	}

	form := ui.Card{Title: "Submit Your Bid"}
	form.Add(
		ui.Input{
			Name:        FieldBidAmount,
			Label:       "Bid Amount ($)",
			Type:        "number",
			Placeholder: "10000",
			Error:       v.fieldErrors[FieldBidAmount],
		},
		ui.Input{
			Name:        FieldEquity,
			Label:       "Equity (%)",
			Type:        "number",
			Placeholder: "5",
			Min:         "0",
			Max:         "100",
			Error:       v.fieldErrors[FieldEquity],
		},
		ui.Button{
			Label:    "Place Bid",
			Action:   ActionSubmitBid,
			Variant:  "primary",
			Disabled: v.state == StateSubmitting,
		},
	)
	page.Add(form)
	return page
}

// Snapshot returns the current state of the view with its rendered card
func (v *AcceptView) Snapshot() AcceptViewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return AcceptViewSnapshot{
		ViewID:      v.id,
		State:       v.state,
		InventionID: v.inventionID,
		Bids:        v.copyBids(),
		SelectedBid: v.selected,
		Summary:     v.summary(),
		Notices:     v.copyNotices(),
		View:        v.render(),
	}
}

func (v *AcceptView) render() ui.Card {
	title := v.title
	if title == "" {
		title = fmt.Sprintf("Innovation #%d", v.inventionID)
	}
	page := ui.Card{ID: v.id, Title: "Available Bids", Description: "Review and accept investor bids for " + title}
	page.Add(ui.Button{Label: "Back to Innovation", Action: ActionBackDetail, Variant: "outline"})

	if v.state == StateLoading {
		page.Add(ui.Label{Text: "Loading bids...", Tone: "muted"})
		return page
	}

	list := ui.Card{Title: "Investor Bids"}
	if len(v.bids) == 0 {
		list.Add(ui.Label{
			Text: "There are no investor bids for this innovation yet. Check back later or promote your invention to attract more investors.",
			Tone: "muted",
		})
	}
	for _, bid := range v.bids {
		row := ui.Card{ID: bid.OrderID.String()}
		row.Add(
			bidLabel(bid, false),
			ui.Button{
				ID:       bid.OrderID.String(),
				Label:    "Accept Bid",
				Action:   ActionAcceptBid,
				Variant:  "success",
				Disabled: v.state == StateAccepting || v.state == StateAccepted,
			},
		)
		list.Add(row)
	}
	page.Add(list)

	if s := v.summary(); s != nil {
		cmp := ui.Card{Title: "Bid Comparison"}
		cmp.Add(
			ui.Label{Text: "Highest Bid: " + ui.Money(s.HighestBidAmount)},
			ui.Label{Text: "The maximum amount offered by investors", Tone: "muted"},
			ui.Label{Text: "Lowest Equity: " + s.LowestEquity.String() + "%"},
			ui.Label{Text: "The minimum equity percentage requested", Tone: "muted"},
		)
		page.Add(cmp)
	}

	if v.state == StateAccepted && v.selected != nil {
		done := ui.Card{Title: "Bid Accepted!"}
		done.Add(
			ui.Label{Text: "Congratulations for accepting the bid. We will notify the investor via email. Stay tuned!", Tone: "success"},
			bidLabel(*v.selected, false),
			ui.Button{Label: "Back to Innovation Details", Action: ActionBackDetail},
		)
		page.Add(done)
	}
	return page
}

func bidLabel(bid types.Bid, showMine bool) ui.Label {
	status := "Pending"
	tone := ""
	if bid.Selected {
		status = "Selected"
		tone = "success"
	}
	investor := fmt.Sprintf("#%d", bid.InvestorID)
	if showMine && bid.IsMine {
		investor = "You " + investor
		if tone == "" {
			tone = "info"
		}
	}
	return ui.Label{
		Text: fmt.Sprintf("%s | %s | %s%% | %s", investor, ui.Money(bid.BidAmount), bid.Equity.String(), status),
		Tone: tone,
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "Not Set"
	}
	return s
}

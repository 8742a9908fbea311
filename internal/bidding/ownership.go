package bidding

import (
	"strings"
	"time"

	"github.com/ksred/innovest-portal/internal/types"
)

// localIDPrefix marks ids the portal made up for bids the service accepted
// without returning an id
const localIDPrefix = "local-"

// AnnotateOwnership returns a copy of bids with IsMine set exactly on the bids
// placed by investorID. The input is left untouched.
func AnnotateOwnership(bids []types.Bid, investorID int64) []types.Bid {
	out := make([]types.Bid, len(bids))
	for i, bid := range bids {
		bid.IsMine = bid.InvestorID == investorID
		out[i] = bid
	}
	return out
}

// HasExistingBid is true when the view arrived with the bidded flag or any
// listed bid belongs to the current investor
func HasExistingBid(bids []types.Bid, hasBiddedFlag bool) bool {
	if hasBiddedFlag {
		return true
	}
	for _, bid := range bids {
		if bid.IsMine {
			return true
		}
	}
	return false
}

// PendingBid is a bid this portal placed that the service has not listed yet
type PendingBid struct {
	Bid      types.Bid
	PlacedAt time.Time
}

func (p PendingBid) local() bool {
	return strings.HasPrefix(string(p.Bid.OrderID), localIDPrefix)
}

// ReconcileResult is the outcome of merging a fetched list with pending bids
type ReconcileResult struct {
	Bids      []types.Bid
	Pending   []PendingBid // still awaiting confirmation
	Confirmed []PendingBid // now listed by the service
	Expired   []PendingBid // never listed within the ttl
}

// Reconcile merges the service's bid list with bids placed locally. Bids are
// matched by order id and the service's copy wins. A pending bid the service
// does not list yet stays at the head of the list until ttl has passed since
// it was placed.
func Reconcile(server []types.Bid, pending []PendingBid, investorID int64, now time.Time, ttl time.Duration) ReconcileResult {
	annotated := AnnotateOwnership(server, investorID)

	seen := make(map[types.OrderID]bool, len(annotated))
	listed := make([]types.Bid, 0, len(annotated))
	serverHasMine := false
	for _, bid := range annotated {
		if !bid.OrderID.IsZero() {
			if seen[bid.OrderID] {
				continue
			}
			seen[bid.OrderID] = true
		}
		if bid.IsMine {
			serverHasMine = true
		}
		listed = append(listed, bid)
	}

	var result ReconcileResult
	var kept []types.Bid
	for _, p := range pending {
		switch {
		case seen[p.Bid.OrderID], p.local() && serverHasMine:
			result.Confirmed = append(result.Confirmed, p)
		case now.Sub(p.PlacedAt) >= ttl:
			result.Expired = append(result.Expired, p)
		default:
			bid := p.Bid
			bid.IsMine = true
			kept = append(kept, bid)
			result.Pending = append(result.Pending, p)
		}
	}

	// pending is oldest first; the newest bid goes on top
	bids := make([]types.Bid, 0, len(kept)+len(listed))
	for i := len(kept) - 1; i >= 0; i-- {
		bids = append(bids, kept[i])
	}
	result.Bids = append(bids, listed...)
	return result
}

func anyMine(bids []types.Bid) bool {
	return HasExistingBid(bids, false)
}

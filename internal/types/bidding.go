package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderID identifies a bid. Backends return it either as a JSON number or a
// string; the portal keeps it as text.
type OrderID string

// IsZero reports whether the id is missing or blank
func (id OrderID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

func (id OrderID) String() string {
	return string(id)
}

// UnmarshalJSON accepts a number, a string or null
func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	*id = OrderID(n.String())
	return nil
}

// MarshalJSON writes canonical integer ids back as numbers so the backend sees
// the same shape it produced. Anything else, including "007" or "+5", stays a
// quoted string.
func (id OrderID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Bid is an investor's offer of an amount for a share of equity in an
// invention. IsMine is computed by the portal and never sent upstream.
type Bid struct {
	OrderID     OrderID         `json:"orderId"`
	InventionID int64           `json:"inventionId"`
	InvestorID  int64           `json:"investorId"`
	BidAmount   decimal.Decimal `json:"bidAmount"`
	Equity      decimal.Decimal `json:"equity"`
	Selected    bool            `json:"selected"`
	IsMine      bool            `json:"isMine"`
}

// BidsResponse is the body of GET /api/bids/invention/{id}
type BidsResponse struct {
	Bids []Bid `json:"bids"`
}

// PlaceBidRequest is the body of POST /api/bids
type PlaceBidRequest struct {
	InventionID int64           `json:"inventionId"`
	InvestorID  int64           `json:"investorId"`
	BidAmount   decimal.Decimal `json:"bidAmount"`
	Equity      decimal.Decimal `json:"equity"`
}

// SelectBidRequest is the body of PATCH /api/bids/select
type SelectBidRequest struct {
	OrderID  OrderID `json:"orderId"`
	Selected bool    `json:"selected"`
}

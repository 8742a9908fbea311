package bidding

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FieldBidAmount = "bidAmount"
	FieldEquity    = "equity"
	FieldOrderID   = "orderId"

	MsgInvalidBidAmount = "Please enter a valid bid amount"
	MsgInvalidEquity    = "Please enter a valid equity percentage (between 0 and 100)"
	MsgMissingOrderID   = "Invalid bid data: Missing order ID"
)

var hundred = decimal.NewFromInt(100)

// Validation is the result of checking bid form input
type Validation struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`

	BidAmount decimal.Decimal `json:"-"`
	Equity    decimal.Decimal `json:"-"`
}

// ValidateBidInput checks the raw form values. The amount must be a number
// above zero and the equity a number in (0, 100]. Both fields are checked
// independently so both messages can be reported at once.
func ValidateBidInput(bidAmount, equity string) Validation {
	v := Validation{Errors: map[string]string{}}

	amount, err := decimal.NewFromString(strings.TrimSpace(bidAmount))
	if err != nil || !amount.IsPositive() {
		v.Errors[FieldBidAmount] = MsgInvalidBidAmount
	} else {
		v.BidAmount = amount
	}

	eq, err := decimal.NewFromString(strings.TrimSpace(equity))
	if err != nil || !eq.IsPositive() || eq.GreaterThan(hundred) {
		v.Errors[FieldEquity] = MsgInvalidEquity
	} else {
		v.Equity = eq
	}

	v.Valid = len(v.Errors) == 0
	if v.Valid {
		v.Errors = nil
	}
	return v
}

// FormValue is a form field the browser may send as a JSON string or number
type FormValue string

func (f *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FormValue(s)
		return nil
	}
	*f = FormValue(data)
	return nil
}

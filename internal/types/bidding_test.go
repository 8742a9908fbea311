package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIDAcceptsNumberAndString(t *testing.T) {
	var resp BidsResponse
	err := json.Unmarshal([]byte(`{"bids":[
		{"orderId": 17, "investorId": 6634104, "bidAmount": 5000, "equity": 8},
		{"orderId": "b-2", "investorId": 1, "bidAmount": "7500.50", "equity": 12.5},
		{"orderId": null, "investorId": 2, "bidAmount": 1, "equity": 1}
	]}`), &resp)
	require.NoError(t, err)
	require.Len(t, resp.Bids, 3)

	assert.Equal(t, OrderID("17"), resp.Bids[0].OrderID)
	assert.Equal(t, OrderID("b-2"), resp.Bids[1].OrderID)
	assert.True(t, resp.Bids[2].OrderID.IsZero())
	assert.Equal(t, "7500.5", resp.Bids[1].BidAmount.String())
}

func TestOrderIDMarshalKeepsShape(t *testing.T) {
	raw, err := json.Marshal(SelectBidRequest{OrderID: "17", Selected: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":17,"selected":true}`, string(raw))

	raw, err = json.Marshal(SelectBidRequest{OrderID: "b-2", Selected: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":"b-2","selected":true}`, string(raw))
}

func TestOrderIDMarshalQuotesNonCanonicalDigits(t *testing.T) {
	cases := map[OrderID]string{
		"12":  `12`,
		"-3":  `-3`,
		"007": `"007"`,
		"+5":  `"+5"`,
		"-0":  `"-0"`,
		"b-2": `"b-2"`,
		"1e3": `"1e3"`,
		" 4":  `" 4"`,
	}
	for id, want := range cases {
		raw, err := json.Marshal(SelectBidRequest{OrderID: id, Selected: true})
		require.NoError(t, err, "id %q", id)
		assert.True(t, json.Valid(raw), "id %q produced %s", id, raw)

		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, want, string(out), "id %q", id)
	}
}

func TestInnovationFunded(t *testing.T) {
	investor := int64(6634104)
	assert.False(t, Innovation{}.Funded())
	assert.True(t, Innovation{InvestorID: &investor}.Funded())
}

package bidding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/internal/types"
)

// API is the bidding service as the views use it
type API interface {
	GetBidsByInventionID(ctx context.Context, inventionID int64) (*types.BidsResponse, error)
	PlaceBid(ctx context.Context, req types.PlaceBidRequest) (*types.Bid, error)
	SelectBid(ctx context.Context, orderID types.OrderID) (*types.Bid, error)
}

// Client talks to the bidding service over REST
type Client struct {
	http *httpclient.Client
}

// NewClient wraps a transport pointed at the bidding service
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// GetBidsByInventionID lists every bid placed on an invention
func (c *Client) GetBidsByInventionID(ctx context.Context, inventionID int64) (*types.BidsResponse, error) {
	var resp types.BidsResponse
	path := "/api/bids/invention/" + strconv.FormatInt(inventionID, 10)
	if err := c.http.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Bids == nil {
		resp.Bids = []types.Bid{}
	}
	return &resp, nil
}

// PlaceBid submits a new bid. The service answers with the created bid or
// with just the id it assigned; both are returned as a Bid.
func (c *Client) PlaceBid(ctx context.Context, req types.PlaceBidRequest) (*types.Bid, error) {
	var raw json.RawMessage
	if err := c.http.Post(ctx, "/api/bids", req, &raw); err != nil {
		return nil, err
	}
	return decodeBid(raw)
}

// SelectBid marks a bid as accepted by the invention owner
func (c *Client) SelectBid(ctx context.Context, orderID types.OrderID) (*types.Bid, error) {
	var raw json.RawMessage
	body := types.SelectBidRequest{OrderID: orderID, Selected: true}
	if err := c.http.Do(ctx, http.MethodPatch, "/api/bids/select", body, &raw); err != nil {
		return nil, err
	}
	return decodeBid(raw)
}

func decodeBid(raw json.RawMessage) (*types.Bid, error) {
	raw = bytes.TrimSpace(raw)
	bid := &types.Bid{}
	if len(raw) == 0 {
		return bid, nil
	}
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, bid); err != nil {
			return nil, fmt.Errorf("decode bid: %w", err)
		}
		return bid, nil
	}
	if err := json.Unmarshal(raw, &bid.OrderID); err != nil {
		return nil, fmt.Errorf("decode order id: %w", err)
	}
	return bid, nil
}

package innovation

import (
	"context"
	"strconv"

	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/internal/types"
)

// API is the innovation service
type API interface {
	GetByInventor(ctx context.Context, inventorID int64) ([]types.Innovation, error)
	Create(ctx context.Context, req CreateRequest) (*types.Innovation, error)
	GetDetail(ctx context.Context, inventionID int64) (*types.Innovation, error)
	UpdateBidTimes(ctx context.Context, req ScheduleUpdate) (*types.Innovation, error)
}

// Client talks to the innovation service over REST
type Client struct {
	http *httpclient.Client
}

// NewClient wraps a transport pointed at the innovation service
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

func (c *Client) GetByInventor(ctx context.Context, inventorID int64) ([]types.Innovation, error) {
	var out []types.Innovation
	if err := c.http.Get(ctx, "/api/inventions/inventor/"+strconv.FormatInt(inventorID, 10), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.Innovation{}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*types.Innovation, error) {
	var out types.Innovation
	if err := c.http.Post(ctx, "/api/inventions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDetail(ctx context.Context, inventionID int64) (*types.Innovation, error) {
	var out types.Innovation
	if err := c.http.Get(ctx, "/api/inventions/"+strconv.FormatInt(inventionID, 10), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBidTimes(ctx context.Context, req ScheduleUpdate) (*types.Innovation, error) {
	var out types.Innovation
	if err := c.http.Put(ctx, "/api/inventions/updateBidTimes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

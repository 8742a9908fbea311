// Package investor serves the investor profile dashboard: the investor's
// details next to the product catalogue, with bid actions on live products.
package investor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/bidding"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/internal/types"
	"github.com/ksred/innovest-portal/internal/ui"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ActionStartBid opens a bid view on a product the investor has not bid on
const ActionStartBid = "start_bid"

// DefaultProfilePicture is shown when the investor service has none
const DefaultProfilePicture = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=400"

// Investor is an investor as returned by the investor service
type Investor struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Company        string `json:"company,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// API is the investor service
type API interface {
	GetDetails(ctx context.Context, investorID int64) (*Investor, error)
	GetProducts(ctx context.Context) ([]types.Product, error)
}

// Client talks to the investor service over REST
type Client struct {
	http *httpclient.Client
}

// NewClient wraps a transport pointed at the investor service
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

func (c *Client) GetDetails(ctx context.Context, investorID int64) (*Investor, error) {
	var out Investor
	if err := c.http.Get(ctx, "/api/investors/"+strconv.FormatInt(investorID, 10), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProducts(ctx context.Context) ([]types.Product, error) {
	var out []types.Product
	if err := c.http.Get(ctx, "/api/inventions/products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductEntry is a catalogue product as the investor sees it
type ProductEntry struct {
	types.Product
	HasBidded bool `json:"hasBidded"`
	// Action is ActionStartBid or bidding.ActionShowMyBid for live products
	// and empty otherwise
	Action string `json:"action,omitempty"`
}

// Dashboard is the investor profile page
type Dashboard struct {
	Investor Investor       `json:"investor"`
	Products []ProductEntry `json:"products"`
	View     ui.Card        `json:"view"`
}

// Service builds the investor dashboard
type Service struct {
	api API
}

// NewService creates an investor service
func NewService(api API) *Service {
	return &Service{api: api}
}

// Dashboard fetches the investor and the catalogue in parallel. Either call
// failing fails the page.
func (s *Service) Dashboard(ctx context.Context, sess *session.Session) (*Dashboard, error) {
	var (
		inv      *Investor
		products []types.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inv, err = s.api.GetDetails(gctx, sess.SubjectID)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.api.GetProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Int64("investor_id", sess.SubjectID).Msg("error fetching investor dashboard")
		return nil, err
	}

	d := &Dashboard{Investor: *inv, Products: make([]ProductEntry, 0, len(products))}
	if d.Investor.ProfilePicture == "" {
		d.Investor.ProfilePicture = DefaultProfilePicture
	}

	for _, p := range products {
		entry := ProductEntry{Product: p, HasBidded: sess.HasBidded(p.InventionID)}
		if p.IsLive {
			entry.Action = ActionStartBid
			if entry.HasBidded {
				entry.Action = bidding.ActionShowMyBid
			}
		}
		d.Products = append(d.Products, entry)
	}
	d.View = render(d)
	return d, nil
}

func render(d *Dashboard) ui.Card {
	page := ui.Card{Title: "Investor Profile"}

	profile := ui.Card{Title: fmt.Sprintf("%s %s", d.Investor.FirstName, d.Investor.LastName)}
	profile.Add(ui.Label{Text: d.Investor.Email, Tone: "muted"})
	if d.Investor.Company != "" {
		profile.Add(ui.Label{Text: d.Investor.Company})
	}
	page.Add(profile)

	if len(d.Products) == 0 {
		page.Add(ui.Label{Text: "No products available", Tone: "muted"})
		return page
	}

	for _, p := range d.Products {
		card := ui.Card{
			ID:          strconv.FormatInt(p.InventionID, 10),
			Title:       fmt.Sprintf("Invention #%d", p.InventionID),
			Description: p.ProductDescription,
		}
		status := ui.Label{Text: "Not Live", Tone: "muted"}
		if p.IsLive {
			status = ui.Label{Text: "Live", Tone: "success"}
		}
		started := "Not Set"
		if p.BidStartDate != "" {
			started = p.BidStartDate
		}
		card.Add(
			status,
			ui.Label{Text: "Expected Capital: " + ui.Money(p.ExpectedCapital)},
			ui.Label{Text: "Bid Start Date: " + started},
		)
		switch p.Action {
		case bidding.ActionShowMyBid:
			card.Add(ui.Button{ID: card.ID, Label: "Show My Bid", Action: p.Action, Variant: "outline"})
		case ActionStartBid:
			card.Add(ui.Button{ID: card.ID, Label: "Start Bid", Action: p.Action, Variant: "primary"})
		}
		page.Add(card)
	}
	return page
}

// GinHandlers contains HTTP handlers for investor endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the investor handlers
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// DashboardHandler handles GET /investor/profile
func (h *GinHandlers) DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		d, err := h.service.Dashboard(c.Request.Context(), sess)
		response.Handle(c, d, err)
	}
}

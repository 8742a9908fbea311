// Package innovation covers the innovator's side of an invention:
// registration, the detail page and the bidding window.
package innovation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/bidding"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/internal/types"
	"github.com/ksred/innovest-portal/internal/ui"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/ksred/innovest-portal/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RegisterRequest is the innovation registration form
type RegisterRequest struct {
	ProductDescription string          `json:"productDescription" validate:"required,max=2000"`
	Capital            decimal.Decimal `json:"capital"`
	ExpectedCapital    decimal.Decimal `json:"expectedCapital"`
	BreakupRevenue     string          `json:"breakupRevenue"`
	CostDescription    string          `json:"costDescription"`
	ModeOfSale         string          `json:"modeOfSale" validate:"required,oneof=DIRECT SHARED PARTNERSHIP LICENSE"`
	PaymentPackage     string          `json:"paymentPackage" validate:"required,oneof=STANDARD PREMIUM ENTERPRISE"`
	BidStartDate       string          `json:"bidStartDate" validate:"omitempty,datetime=2006-01-02"`
	BidStartTime       string          `json:"bidStartTime"`
	BidEndTime         string          `json:"bidEndTime"`
	AOI                []string        `json:"aoi"`
	ProductVideo       string          `json:"productVideo" validate:"omitempty,url"`
	SalesData          string          `json:"salesData"`
}

// CreateRequest is the body of POST /api/inventions
type CreateRequest struct {
	InventorID         int64           `json:"inventorId"`
	ProductDescription string          `json:"productDescription"`
	Capital            decimal.Decimal `json:"capital"`
	ExpectedCapital    decimal.Decimal `json:"expectedCapital"`
	BreakupRevenue     string          `json:"breakupRevenue"`
	CostDescription    string          `json:"costDescription"`
	ModeOfSale         string          `json:"modeOfSale"`
	PaymentPackage     string          `json:"paymentPackage"`
	BidStartDate       string          `json:"bidStartDate"`
	BidStartTime       string          `json:"bidStartTime"`
	BidEndTime         string          `json:"bidEndTime"`
	AOI                []string        `json:"aoi"`
	ProductVideo       string          `json:"productVideo"`
	SalesData          []int           `json:"salesData"`
}

// Portfolio splits an innovator's inventions by funding status
type Portfolio struct {
	Active []types.Innovation `json:"active"`
	Funded []types.Innovation `json:"funded"`
}

// Detail is the innovation detail page
type Detail struct {
	Innovation  types.Innovation `json:"innovation"`
	AcceptedBid *types.Bid       `json:"acceptedBid,omitempty"`
	View        ui.Card          `json:"view"`
}

// Service implements the innovator's innovation operations
type Service struct {
	api API
}

// NewService creates an innovation service
func NewService(api API) *Service {
	return &Service{api: api}
}

// Register validates the form and creates an innovation owned by innovatorID
func (s *Service) Register(ctx context.Context, innovatorID int64, req RegisterRequest) (*types.Innovation, error) {
	err := validation.Struct(req, validation.Messages{
		"productDescription.required": "Product description is required",
	})

	fields := map[string]string{}
	if !req.ExpectedCapital.IsPositive() {
		fields["expectedCapital"] = "Expected capital must be greater than 0"
	}
	if req.Capital.IsNegative() {
		fields["capital"] = "Capital cannot be negative"
	}

	var sales []int
	if strings.TrimSpace(req.SalesData) != "" {
		parsed, perr := ParseSalesData(req.SalesData)
		if perr != nil {
			var verr *validation.Error
			if ok := asValidation(perr, &verr); ok {
				for k, v := range verr.Fields {
					fields[k] = v
				}
			}
		}
		sales = parsed
	}

	startTime, endTime := req.BidStartTime, req.BidEndTime
	if startTime != "" || endTime != "" {
		sched, serr := NormalizeSchedule(ScheduleUpdate{
			InventionID:  1, // not assigned yet
			BidStartTime: startTime,
			BidEndTime:   endTime,
			BidStartDate: req.BidStartDate,
		})
		var verr *validation.Error
		if serr != nil && asValidation(serr, &verr) {
			for k, v := range verr.Fields {
				fields[k] = v
			}
		}
		startTime, endTime = sched.BidStartTime, sched.BidEndTime
	}

	if err := validation.Merge(err, fields); err != nil {
		return nil, err
	}

	aoi := make([]string, 0, len(req.AOI))
	for _, area := range req.AOI {
		if area = strings.TrimSpace(area); area != "" {
			aoi = append(aoi, area)
		}
	}

	created, err := s.api.Create(ctx, CreateRequest{
		InventorID:         innovatorID,
		ProductDescription: req.ProductDescription,
		Capital:            req.Capital,
		ExpectedCapital:    req.ExpectedCapital,
		BreakupRevenue:     req.BreakupRevenue,
		CostDescription:    req.CostDescription,
		ModeOfSale:         req.ModeOfSale,
		PaymentPackage:     req.PaymentPackage,
		BidStartDate:       req.BidStartDate,
		BidStartTime:       startTime,
		BidEndTime:         endTime,
		AOI:                aoi,
		ProductVideo:       req.ProductVideo,
		SalesData:          sales,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to register innovation: %w", err)
	}

	log.Info().
		Int64("innovator_id", innovatorID).
		Int64("invention_id", created.InventionID).
		Msg("innovation registered")
	return created, nil
}

// Portfolio lists the innovator's inventions, split into those still looking
// for an investor and those already funded
func (s *Service) Portfolio(ctx context.Context, innovatorID int64) (*Portfolio, error) {
	all, err := s.api.GetByInventor(ctx, innovatorID)
	if err != nil {
		return nil, err
	}

	p := &Portfolio{Active: []types.Innovation{}, Funded: []types.Innovation{}}
	for _, inv := range all {
		if inv.Funded() {
			p.Funded = append(p.Funded, inv)
		} else {
			p.Active = append(p.Active, inv)
		}
	}
	return p, nil
}

// VerifyOwner returns bidding.ErrNotOwner unless innovatorID owns the invention
func (s *Service) VerifyOwner(ctx context.Context, innovatorID, inventionID int64) error {
	inv, err := s.api.GetDetail(ctx, inventionID)
	if err != nil {
		return err
	}
	if inv.InventorID != innovatorID {
		log.Warn().
			Int64("innovator_id", innovatorID).
			Int64("invention_id", inventionID).
			Msg("innovator does not own invention")
		return bidding.ErrNotOwner
	}
	return nil
}

// Detail loads an owned innovation together with the bid accepted for it in
// this session, if any
func (s *Service) Detail(ctx context.Context, sess *session.Session, inventionID int64) (*Detail, error) {
	inv, err := s.api.GetDetail(ctx, inventionID)
	if err != nil {
		return nil, err
	}
	if inv.InventorID != sess.SubjectID {
		return nil, bidding.ErrNotOwner
	}

	d := &Detail{Innovation: *inv}
	if v, ok := sess.Handoff(session.DetailHandoffKey(inventionID)); ok {
		if ret, ok := v.(bidding.DetailReturn); ok && ret.SelectedBid != nil {
			d.AcceptedBid = ret.SelectedBid
		}
	}
	d.View = renderDetail(d)
	return d, nil
}

// UpdateSchedule normalises and saves the bidding window of an owned invention
func (s *Service) UpdateSchedule(ctx context.Context, sess *session.Session, req ScheduleUpdate) (*types.Innovation, error) {
	normalized, err := NormalizeSchedule(req)
	if err != nil {
		return nil, err
	}
	if err := s.VerifyOwner(ctx, sess.SubjectID, normalized.InventionID); err != nil {
		return nil, err
	}

	updated, err := s.api.UpdateBidTimes(ctx, normalized)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("invention_id", normalized.InventionID).
		Str("bid_start_date", normalized.BidStartDate).
		Str("bid_start_time", normalized.BidStartTime).
		Str("bid_end_time", normalized.BidEndTime).
		Msg("bid times updated")
	return updated, nil
}

func renderDetail(d *Detail) ui.Card {
	inv := d.Innovation
	page := ui.Card{Title: "Innovation Details"}
	page.Add(
		ui.Label{Text: fmt.Sprintf("Invention ID: %d", inv.InventionID)},
		ui.Label{Text: inv.ProductDescription},
		ui.Label{Text: "Mode of Sale: " + inv.ModeOfSale},
		ui.Label{Text: "Payment Package: " + inv.PaymentPackage},
	)
	if len(inv.SalesData) > 0 {
		parts := make([]string, len(inv.SalesData))
		for i, n := range inv.SalesData {
			parts[i] = strconv.Itoa(n)
		}
		page.Add(ui.Label{Text: "Sales Data: " + strings.Join(parts, ", ")})
	}

	status := ui.Label{Text: "Status: Not Live", Tone: "muted"}
	if inv.IsLive {
		status = ui.Label{Text: "Status: Live", Tone: "success"}
	}
	page.Add(status)

	if d.AcceptedBid != nil {
		accepted := ui.Card{Title: "Accepted Bid"}
		accepted.Add(
			ui.Label{Text: fmt.Sprintf("Investor #%d", d.AcceptedBid.InvestorID)},
			ui.Label{Text: "Bid Amount: " + ui.Money(d.AcceptedBid.BidAmount)},
			ui.Label{Text: "Equity: " + d.AcceptedBid.Equity.String() + "%"},
		)
		page.Add(accepted)
	} else if inv.IsLive && !inv.Funded() {
		page.Add(ui.Button{Label: "View Bids", Action: "open_accept_view", Variant: "primary"})
	}
	return page
}

func asValidation(err error, target **validation.Error) bool {
	return errors.As(err, target)
}

// GinHandlers contains HTTP handlers for innovation endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the innovation handlers
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func inventionParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("invention_id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid invention ID")
		return 0, false
	}
	return id, true
}

// RegisterHandler handles POST /innovations
func (h *GinHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		created, err := h.service.Register(c.Request.Context(), sess.SubjectID, req)
		response.Handle(c, created, err)
	}
}

// PortfolioHandler handles GET /innovator/inventions
func (h *GinHandlers) PortfolioHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		p, err := h.service.Portfolio(c.Request.Context(), sess.SubjectID)
		response.Handle(c, p, err)
	}
}

// DetailHandler handles GET /innovations/:invention_id
func (h *GinHandlers) DetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}
		id, ok := inventionParam(c)
		if !ok {
			return
		}

		d, err := h.service.Detail(c.Request.Context(), sess, id)
		response.Handle(c, d, err)
	}
}

// UpdateScheduleHandler handles PUT /innovations/:invention_id/schedule
func (h *GinHandlers) UpdateScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}
		id, ok := inventionParam(c)
		if !ok {
			return
		}

		var req ScheduleUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		req.InventionID = id

		updated, err := h.service.UpdateSchedule(c.Request.Context(), sess, req)
		response.Handle(c, updated, err)
	}
}

// Package bidding implements the bid workflow of the portal: investors list
// and place bids on a product, innovators accept one bid on their invention.
// Each screen is a view owned by the session that opened it.
package bidding

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/internal/types"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_bid_submissions_total",
		Help: "Bid submissions by result.",
	}, []string{"result"})

	acceptances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_bid_acceptances_total",
		Help: "Bid acceptances by result.",
	}, []string{"result"})
)

// Parent views a client is sent back to when a view lacks its context
const (
	InvestorProfilePath  = "/investor-profile"
	InnovationDetailPath = "/innovation-detail"
)

// OwnershipVerifier confirms an innovator owns an invention
type OwnershipVerifier interface {
	VerifyOwner(ctx context.Context, innovatorID, inventionID int64) error
}

// Options configures a Service
type Options struct {
	PendingBidTTL time.Duration
	Verifier      OwnershipVerifier
	Now           func() time.Time
}

// Service opens and drives bid and accept views
type Service struct {
	api        API
	registry   *Registry
	verifier   OwnershipVerifier
	pendingTTL time.Duration
	now        func() time.Time
}

// NewService creates a bidding service on top of the bidding API
func NewService(api API, opts Options) *Service {
	if opts.PendingBidTTL <= 0 {
		opts.PendingBidTTL = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		api:        api,
		registry:   NewRegistry(),
		verifier:   opts.Verifier,
		pendingTTL: opts.PendingBidTTL,
		now:        opts.Now,
	}
}

// Registry returns the open views
func (s *Service) Registry() *Registry {
	return s.registry
}

// OpenBidViewRequest is the navigation state a bid view is opened with
type OpenBidViewRequest struct {
	Product    *types.Product `json:"product"`
	InvestorID int64          `json:"investorId"`
	HasBidded  bool           `json:"hasBidded"`
}

// OpenBidView opens a bid view for the session's investor and loads its bids
func (s *Service) OpenBidView(ctx context.Context, sess *session.Session, req OpenBidViewRequest) (*BidView, error) {
	if req.Product == nil || req.Product.InventionID == 0 {
		return nil, &MissingContextError{Message: "Product information not found.", Redirect: InvestorProfilePath}
	}

	investorID := req.InvestorID
	if investorID == 0 {
		investorID = sess.SubjectID
	}
	if investorID != sess.SubjectID {
		return nil, ErrInvestorMismatch
	}

	hasBidded := req.HasBidded || sess.HasBidded(req.Product.InventionID)
	v := newBidView(sess, s.api, *req.Product, investorID, hasBidded, s.pendingTTL, s.now)
	s.registry.add(sess, v)

	log.Info().
		Str("view_id", v.ID()).
		Int64("invention_id", req.Product.InventionID).
		Int64("investor_id", investorID).
		Bool("has_bidded", hasBidded).
		Msg("bid view opened")

	if err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// OpenAcceptViewRequest is the navigation state an accept view is opened with
type OpenAcceptViewRequest struct {
	InventionID     int64  `json:"inventionId"`
	InnovationTitle string `json:"innovationTitle"`
}

// OpenAcceptView opens an accept view for an invention the session's
// innovator owns and loads its bids
func (s *Service) OpenAcceptView(ctx context.Context, sess *session.Session, req OpenAcceptViewRequest) (*AcceptView, error) {
	if req.InventionID == 0 {
		return nil, &MissingContextError{Message: "Invention information not found.", Redirect: InnovationDetailPath}
	}
	if s.verifier != nil {
		if err := s.verifier.VerifyOwner(ctx, sess.SubjectID, req.InventionID); err != nil {
			return nil, err
		}
	}

	v := newAcceptView(sess, s.api, req.InventionID, req.InnovationTitle, s.now)
	s.registry.add(sess, v)

	log.Info().
		Str("view_id", v.ID()).
		Int64("invention_id", req.InventionID).
		Msg("accept view opened")

	if err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// BackToProfile closes a bid view and returns the profile handoff
func (s *Service) BackToProfile(sess *session.Session, viewID string) (ProfileReturn, error) {
	v, err := s.registry.BidView(sess, viewID)
	if err != nil {
		return ProfileReturn{}, err
	}
	s.registry.remove(viewID)
	return v.Back(), nil
}

// BackToDetail closes an accept view and returns the detail handoff
func (s *Service) BackToDetail(sess *session.Session, viewID string) (DetailReturn, error) {
	v, err := s.registry.AcceptView(sess, viewID)
	if err != nil {
		return DetailReturn{}, err
	}
	s.registry.remove(viewID)
	return v.Back(), nil
}

// GinHandlers contains HTTP handlers for bid and accept views
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the bidding handlers
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func mustSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.FromGin(c)
	if !ok {
		response.Unauthorized(c, "Missing session")
	}
	return sess, ok
}

// OpenBidViewHandler handles POST /bid-views
func (h *GinHandlers) OpenBidViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		var req OpenBidViewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		v, err := h.service.OpenBidView(c.Request.Context(), sess, req)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, v.Snapshot())
	}
}

// GetBidViewHandler handles GET /bid-views/:view_id
func (h *GinHandlers) GetBidViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		v, err := h.service.registry.BidView(sess, c.Param("view_id"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.OK(c, v.Snapshot())
	}
}

// RefreshBidViewHandler handles POST /bid-views/:view_id/refresh
func (h *GinHandlers) RefreshBidViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		v, err := h.service.registry.BidView(sess, c.Param("view_id"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		if err := v.Refresh(c.Request.Context()); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.OK(c, v.Snapshot())
	}
}

// SubmitBidRequest holds the raw bid form values
type SubmitBidRequest struct {
	BidAmount FormValue `json:"bidAmount"`
	Equity    FormValue `json:"equity"`
}

// SubmitBidHandler handles POST /bid-views/:view_id/bids
func (h *GinHandlers) SubmitBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		v, err := h.service.registry.BidView(sess, c.Param("view_id"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		var req SubmitBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if _, err := v.SubmitBid(c.Request.Context(), string(req.BidAmount), string(req.Equity)); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, v.Snapshot())
	}
}

// BackToProfileHandler handles POST /bid-views/:view_id/back
func (h *GinHandlers) BackToProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		ret, err := h.service.BackToProfile(sess, c.Param("view_id"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.OK(c, gin.H{"redirect": InvestorProfilePath, "state": ret})
	}
}

// CloseViewHandler handles DELETE on either kind of view
func (h *GinHandlers) CloseViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		if err := h.service.registry.Close(sess, c.Param("view_id")); err != nil {
			response.Handle(c, nil, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// OpenAcceptViewHandler handles POST /accept-views
func (h *GinHandlers) OpenAcceptViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		var req OpenAcceptViewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		v, err := h.service.OpenAcceptView(c.Request.Context(), sess, req)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, v.Snapshot())
	}
}

// GetAcceptViewHandler handles GET /accept-views/:view_id
func (h *GinHandlers) GetAcceptViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		v, err := h.service.registry.AcceptView(sess, c.Param("view_id"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.OK(c, v.Snapshot())
	}
}

// AcceptBidRequest names the bid to accept
type AcceptBidRequest struct {
	OrderID types.OrderID `json:"orderId"`
}

// AcceptBidHandler handles POST /accept-views/:view_id/accept
func (h *GinHandlers) AcceptBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		v, err := h.service.registry.AcceptView(sess, c.Param("view_id"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		var req AcceptBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if _, err := v.Accept(c.Request.Context(), req.OrderID); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.OK(c, v.Snapshot())
	}
}

// BackToDetailHandler handles POST /accept-views/:view_id/back
func (h *GinHandlers) BackToDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mustSession(c)
		if !ok {
			return
		}

		ret, err := h.service.BackToDetail(sess, c.Param("view_id"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.OK(c, gin.H{"redirect": InnovationDetailPath, "state": ret})
	}
}

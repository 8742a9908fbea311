// Package sandbox is a local stand-in for the marketplace's backend services.
// It serves the same REST paths the portal's clients call, stores everything
// in sqlite through gorm and can inject latency and failures.
package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/innovest-portal/internal/innovation"
	"github.com/ksred/innovest-portal/internal/innovator"
	"github.com/ksred/innovest-portal/internal/payment"
	"github.com/ksred/innovest-portal/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service implements the backend behaviour behind the sandbox routes
type Service struct {
	db *Database
}

// NewService creates a sandbox service over an open database
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// PlaceBid validates and stores a bid
func (s *Service) PlaceBid(req types.PlaceBidRequest) (*Bid, error) {
	if !req.BidAmount.IsPositive() || !req.Equity.IsPositive() || req.Equity.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errInvalidBid
	}

	inv, err := s.db.GetInvention(req.InventionID)
	if err != nil {
		return nil, err
	}
	if !inv.IsLive || inv.InvestorID != nil {
		return nil, errBiddingClosed
	}
	if _, err := s.db.FindBid(req.InventionID, req.InvestorID); err == nil {
		return nil, ErrDuplicateBid
	}

	bid := &Bid{
		InventionID: req.InventionID,
		InvestorID:  req.InvestorID,
		BidAmount:   req.BidAmount,
		Equity:      req.Equity,
		CreatedAt:   time.Now(),
	}
	if err := s.db.CreateBid(bid); err != nil {
		return nil, err
	}

	log.Info().
		Int64("order_id", bid.ID).
		Int64("invention_id", bid.InventionID).
		Int64("investor_id", bid.InvestorID).
		Str("bid_amount", bid.BidAmount.String()).
		Msg("bid placed")
	return bid, nil
}

// Checkout records a completed payment for an invention. The sandbox has no
// payment provider, so every checkout succeeds at once.
func (s *Service) Checkout(inventionID int64, packageName, email string) (*Payment, error) {
	plan, ok := payment.PlanByName(packageName)
	if !ok {
		return nil, errUnknownPackage
	}
	if email == "" {
		return nil, errMissingEmail
	}

	inv, err := s.db.GetInvention(inventionID)
	if err != nil {
		return nil, err
	}
	inv.IsPaid = true
	inv.PaymentPackage = strings.ToUpper(plan.Name)

	p := &Payment{
		SessionID:       "cs_test_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		InventionID:     inventionID,
		PackageName:     plan.Name,
		InventorEmail:   email,
		Amount:          plan.Price,
		PaymentIntentID: "pi_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24],
		PaymentDatetime: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.db.CreatePayment(p, inv); err != nil {
		return nil, err
	}
	return p, nil
}

type sandboxError struct {
	msg    string
	status int
}

func (e *sandboxError) Error() string { return e.msg }

var (
	errInvalidBid     = &sandboxError{"Bid amount and equity must be positive and equity at most 100", http.StatusBadRequest}
	errBiddingClosed  = &sandboxError{"Bidding is closed for this invention", http.StatusBadRequest}
	errUnknownPackage = &sandboxError{"Unknown payment package", http.StatusBadRequest}
	errMissingEmail   = &sandboxError{"Inventor email is required", http.StatusBadRequest}
)

// GinHandlers contains the backend REST handlers
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the sandbox handlers
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// Register mounts every backend path on r
func (h *GinHandlers) Register(r gin.IRouter) {
	r.GET("/api/innovator/:id", h.GetInnovatorHandler())
	r.PATCH("/api/innovator/:id", h.UpdateInnovatorHandler())
	r.POST("/api/innovator/register", h.RegisterInnovatorHandler())

	r.GET("/api/inventions/products", h.ListProductsHandler())
	r.GET("/api/inventions/inventor/:id", h.ListInventionsHandler())
	r.GET("/api/inventions/:id", h.GetInventionHandler())
	r.POST("/api/inventions", h.CreateInventionHandler())
	r.PUT("/api/inventions/updateBidTimes", h.UpdateBidTimesHandler())

	r.GET("/api/bids/invention/:id", h.ListBidsHandler())
	r.POST("/api/bids", h.PlaceBidHandler())
	r.PATCH("/api/bids/select", h.SelectBidHandler())

	r.GET("/api/investors/:id", h.GetInvestorHandler())

	r.POST("/api/payments/:id", h.CheckoutHandler())
	r.GET("/api/payments/details", h.PaymentDetailsHandler())
	r.GET("/checkout/:session_id", h.CheckoutPageHandler())

	r.GET("/api/story", h.ListStoriesHandler())
	r.POST("/api/story", h.CreateStoryHandler())
}

// fail writes the error body the real services use
func fail(c *gin.Context, err error) {
	var serr *sandboxError
	switch {
	case errors.As(err, &serr):
		c.AbortWithStatusJSON(serr.status, gin.H{"error": serr.msg})
	case errors.Is(err, ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, ErrDuplicateBid), errors.Is(err, ErrAlreadySelected):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("sandbox request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

func (h *GinHandlers) GetInnovatorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		inn, err := h.service.db.GetInnovator(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inn)
	}
}

func (h *GinHandlers) UpdateInnovatorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req innovator.ProfileUpdate
		if !bindJSON(c, &req) {
			return
		}

		inn, err := h.service.db.GetInnovator(id)
		if err != nil {
			fail(c, err)
			return
		}
		if req.Email != inn.Email {
			if other, err := h.service.db.GetInnovatorByEmail(req.Email); err == nil && other.ID != id {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
				return
			}
		}

		inn.FirstName, inn.LastName, inn.Email = req.FirstName, req.LastName, req.Email
		inn.Gender, inn.Birthday, inn.ProfilePicture = req.Gender, req.Birthday, req.ProfilePicture
		if err := h.service.db.UpdateInnovator(inn); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inn)
	}
}

// RegisterInnovatorHandler answers with the outcome in a status field, 201
// for a new account and 200 when the email is taken
func (h *GinHandlers) RegisterInnovatorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req innovator.SignupRequest
		if !bindJSON(c, &req) {
			return
		}

		if existing, err := h.service.db.GetInnovatorByEmail(req.Email); err == nil {
			c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "User already exists", "id": existing.ID})
			return
		}

		inn := &Innovator{
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Email:          req.Email,
			ProfilePicture: req.ProfilePicture,
			Birthday:       req.Birthday,
			Gender:         req.Gender,
		}
		if err := h.service.db.CreateInnovator(inn); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": http.StatusCreated, "message": "User registered successfully", "id": inn.ID})
	}
}

func inventionsToAPI(in []Invention) []types.Innovation {
	out := make([]types.Innovation, len(in))
	for i, inv := range in {
		out[i] = inv.toAPI()
	}
	return out
}

func (h *GinHandlers) ListProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := h.service.db.ListProducts()
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inventionsToAPI(products))
	}
}

func (h *GinHandlers) ListInventionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		inventions, err := h.service.db.ListInventionsByInventor(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inventionsToAPI(inventions))
	}
}

func (h *GinHandlers) GetInventionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		inv, err := h.service.db.GetInvention(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Invention not found"})
				return
			}
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inv.toAPI())
	}
}

func (h *GinHandlers) CreateInventionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req innovation.CreateRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.InventorID == 0 || req.ProductDescription == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "inventorId and productDescription are required"})
			return
		}

		inv := &Invention{
			InventorID:         req.InventorID,
			ProductDescription: req.ProductDescription,
			Capital:            req.Capital,
			ExpectedCapital:    req.ExpectedCapital,
			BreakupRevenue:     req.BreakupRevenue,
			CostDescription:    req.CostDescription,
			ModeOfSale:         req.ModeOfSale,
			PaymentPackage:     req.PaymentPackage,
			SalesData:          joinInts(req.SalesData),
			AOI:                strings.Join(req.AOI, ","),
			ProductVideo:       req.ProductVideo,
			BidStartDate:       req.BidStartDate,
			BidStartTime:       req.BidStartTime,
			BidEndTime:         req.BidEndTime,
			IsLive:             req.BidStartTime != "" && req.BidEndTime != "",
		}
		if err := h.service.db.CreateInvention(inv); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, inv.toAPI())
	}
}

func (h *GinHandlers) UpdateBidTimesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req innovation.ScheduleUpdate
		if !bindJSON(c, &req) {
			return
		}

		inv, err := h.service.db.GetInvention(req.InventionID)
		if err != nil {
			fail(c, err)
			return
		}
		inv.BidStartTime, inv.BidEndTime = req.BidStartTime, req.BidEndTime
		if req.BidStartDate != "" {
			inv.BidStartDate = req.BidStartDate
		}
		inv.IsLive = inv.InvestorID == nil
		if err := h.service.db.UpdateInvention(inv); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inv.toAPI())
	}
}

func (h *GinHandlers) ListBidsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		bids, err := h.service.db.ListBids(id)
		if err != nil {
			fail(c, err)
			return
		}
		out := make([]types.Bid, len(bids))
		for i, b := range bids {
			out[i] = b.toAPI()
		}
		c.JSON(http.StatusOK, types.BidsResponse{Bids: out})
	}
}

func (h *GinHandlers) PlaceBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.PlaceBidRequest
		if !bindJSON(c, &req) {
			return
		}
		bid, err := h.service.PlaceBid(req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, bid.toAPI())
	}
}

func (h *GinHandlers) SelectBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SelectBidRequest
		if !bindJSON(c, &req) {
			return
		}
		orderID, err := strconv.ParseInt(req.OrderID.String(), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
			return
		}

		bid, err := h.service.db.SelectBid(orderID)
		if err != nil {
			fail(c, err)
			return
		}
		log.Info().Int64("order_id", bid.ID).Int64("invention_id", bid.InventionID).Msg("bid selected")
		c.JSON(http.StatusOK, bid.toAPI())
	}
}

func (h *GinHandlers) GetInvestorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		inv, err := h.service.db.GetInvestor(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inv)
	}
}

type checkoutBody struct {
	PaymentPackage string `json:"Payment_Package"`
	InventorEmail  string `json:"Inventor_Email"`
}

func (h *GinHandlers) CheckoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req checkoutBody
		if !bindJSON(c, &req) {
			return
		}

		p, err := h.service.Checkout(id, req.PaymentPackage, req.InventorEmail)
		if err != nil {
			fail(c, err)
			return
		}
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		c.JSON(http.StatusOK, gin.H{"session_url": scheme + "://" + c.Request.Host + "/checkout/" + p.SessionID})
	}
}

func (h *GinHandlers) PaymentDetailsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.service.db.GetPayment(c.Query("session_id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// CheckoutPageHandler stands in for the provider's hosted checkout page
func (h *GinHandlers) CheckoutPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.service.db.GetPayment(c.Param("session_id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "paid", "payment": p})
	}
}

func (h *GinHandlers) ListStoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stories, err := h.service.db.ListStories()
		if err != nil {
			fail(c, err)
			return
		}
		if stories == nil {
			stories = []Story{}
		}
		c.JSON(http.StatusOK, stories)
	}
}

func (h *GinHandlers) CreateStoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var story Story
		if !bindJSON(c, &story) {
			return
		}
		story.ID = 0
		if story.InventionID == "" || story.InventorName == "" || story.Message == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "inventionId, inventorName and message are required"})
			return
		}
		if err := h.service.db.CreateStory(&story); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, story)
	}
}

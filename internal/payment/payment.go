// Package payment offers the listing plans and hands innovators over to the
// payment provider's checkout.
package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/ksred/innovest-portal/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	MsgCheckoutFailed   = "Payment initialization failed"
	MsgUnknownFailure   = "Payment failed due to an unknown error."
	MsgMissingSessionID = "session_id is required"
)

// ErrNoSessionURL is returned when the payment service accepts a checkout
// without telling us where to send the browser
var ErrNoSessionURL = errors.New(MsgCheckoutFailed)

// Plan is one listing package
type Plan struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Features []string        `json:"features"`
	Popular  bool            `json:"popular,omitempty"`
}

var plans = []Plan{
	{
		Name:  "Standard",
		Price: decimal.NewFromInt(100),
		Features: []string{
			"Basic patent search",
			"Standard documentation",
			"Email support",
			"Basic filing assistance",
			"30-day review period",
		},
	},
	{
		Name:  "Enterprise",
		Price: decimal.NewFromInt(250),
		Features: []string{
			"Comprehensive patent search",
			"Professional documentation",
			"Priority email support",
			"Advanced filing assistance",
			"Patent landscape analysis",
			"60-day review period",
		},
		Popular: true,
	},
	{
		Name:  "Premium",
		Price: decimal.NewFromInt(500),
		Features: []string{
			"Full patent search & analysis",
			"Expert document preparation",
			"24/7 dedicated support",
			"Complete landscape analysis",
			"International filing options",
			"90-day review period",
			"Legal consultation included",
		},
	},
}

// Plans returns the plan catalogue
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// PlanByName finds a plan in the catalogue
func PlanByName(name string) (Plan, bool) {
	for _, p := range plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

var failureReasons = map[string]string{
	"card_declined":      "Your card was declined. Please try a different payment method.",
	"insufficient_funds": "Insufficient funds. Please check your account balance.",
	"expired_card":       "Your card has expired. Please use a different card.",
	"incorrect_cvc":      "The security code (CVC) is incorrect.",
	"processing_error":   "There was an error processing your payment.",
	"cancelled":          "Payment was cancelled.",
	"timeout":            "Payment session timed out.",
}

// FailureReason explains a provider failure code to the user
func FailureReason(code string) string {
	if reason, ok := failureReasons[code]; ok {
		return reason
	}
	return MsgUnknownFailure
}

// CheckoutRequest is the browser's checkout form
type CheckoutRequest struct {
	Plan        string `json:"plan" validate:"required,oneof=Standard Enterprise Premium"`
	InventionID int64  `json:"inventionId" validate:"required,gt=0"`
	Email       string `json:"email" validate:"required,email"`
}

// checkoutBody is what the payment service expects
type checkoutBody struct {
	PaymentPackage string `json:"Payment_Package"`
	InventorEmail  string `json:"Inventor_Email"`
}

// CheckoutSession points the browser at the provider's hosted checkout
type CheckoutSession struct {
	SessionURL string `json:"session_url"`
}

// Details describes a completed payment
type Details struct {
	PaymentDatetime string          `json:"paymentDatetime"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Amount          decimal.Decimal `json:"amount"`
	PackageName     string          `json:"packageName"`
}

// API is the payment service
type API interface {
	CreateCheckout(ctx context.Context, inventionID int64, plan, email string) (*CheckoutSession, error)
	GetDetails(ctx context.Context, sessionID string) (*Details, error)
}

// Client talks to the payment service over REST
type Client struct {
	http *httpclient.Client
}

// NewClient wraps a transport pointed at the payment service
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

func (c *Client) CreateCheckout(ctx context.Context, inventionID int64, plan, email string) (*CheckoutSession, error) {
	var out CheckoutSession
	body := checkoutBody{PaymentPackage: plan, InventorEmail: email}
	if err := c.http.Post(ctx, "/api/payments/"+strconv.FormatInt(inventionID, 10), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDetails(ctx context.Context, sessionID string) (*Details, error) {
	var out Details
	if err := c.http.Get(ctx, "/api/payments/details?session_id="+url.QueryEscape(sessionID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Service runs checkouts
type Service struct {
	api API
}

// NewService creates a payment service
func NewService(api API) *Service {
	return &Service{api: api}
}

// Checkout validates the form and opens a checkout session
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	err := validation.Struct(req, validation.Messages{
		"plan":        "Please select a plan",
		"inventionId": "Invention ID is required",
		"email":       "A valid inventor email is required",
	})
	if err != nil {
		return nil, err
	}

	cs, err := s.api.CreateCheckout(ctx, req.InventionID, req.Plan, req.Email)
	if err != nil {
		return nil, err
	}
	if cs.SessionURL == "" {
		return nil, ErrNoSessionURL
	}

	log.Info().
		Int64("invention_id", req.InventionID).
		Str("plan", req.Plan).
		Msg("checkout session created")
	return cs, nil
}

// Details looks up a payment by checkout session id
func (s *Service) Details(ctx context.Context, sessionID string) (*Details, error) {
	if sessionID == "" {
		return nil, &validation.Error{Fields: map[string]string{"session_id": MsgMissingSessionID}}
	}
	return s.api.GetDetails(ctx, sessionID)
}

// GinHandlers contains HTTP handlers for payment endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the payment handlers
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// PlansHandler handles GET /payments/plans
func (h *GinHandlers) PlansHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, Plans())
	}
}

// CheckoutHandler handles POST /payments/checkout
func (h *GinHandlers) CheckoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		cs, err := h.service.Checkout(c.Request.Context(), req)
		if errors.Is(err, ErrNoSessionURL) {
			response.WithStatus(c, http.StatusBadGateway, err.Error())
			return
		}
		response.Handle(c, cs, err)
	}
}

// DetailsHandler handles GET /payments/details?session_id=
func (h *GinHandlers) DetailsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := h.service.Details(c.Request.Context(), c.Query("session_id"))
		response.Handle(c, d, err)
	}
}

// FailureHandler handles GET /payments/failure?error=&session_id=
func (h *GinHandlers) FailureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, gin.H{
			"reason":     FailureReason(c.Query("error")),
			"session_id": c.Query("session_id"),
		})
	}
}

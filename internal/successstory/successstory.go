// Package successstory lists and collects success stories from funded
// innovators.
package successstory

import (
	"context"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/ksred/innovest-portal/pkg/validation"
	"github.com/rs/zerolog/log"
)

const downloadPath = "/api/story/download/"

// Story is a success story as stored by the success-story service
type Story struct {
	ID           int64  `json:"id,omitempty"`
	InventionID  string `json:"inventionId"`
	InventorName string `json:"inventorName"`
	InvestorID   string `json:"investorId,omitempty"`
	Message      string `json:"message"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

// CreateRequest is the story submission form
type CreateRequest struct {
	InventionID  string `json:"inventionId" validate:"required"`
	InventorName string `json:"inventorName" validate:"required"`
	InvestorID   string `json:"investorId"`
	Message      string `json:"message" validate:"required,max=500"`
	ProfilePhoto string `json:"profilePhoto" validate:"omitempty,url"`
}

var messages = validation.Messages{
	"inventionId":      "Invention ID is required",
	"inventorName":     "Inventor name is required",
	"message.required": "Success story message is required",
	"message.max":      "Success story message must be less than 500 characters",
	"profilePhoto":     "Profile photo must be a valid URL",
}

// API is the success-story service
type API interface {
	List(ctx context.Context) ([]Story, error)
	Create(ctx context.Context, story Story) (*Story, error)
	// PhotoURL resolves an uploaded photo name to an address the browser can load
	PhotoURL(name string) string
}

// Client talks to the success-story service over REST
type Client struct {
	http *httpclient.Client
}

// NewClient wraps a transport pointed at the success-story service
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

func (c *Client) List(ctx context.Context) ([]Story, error) {
	var out []Story
	if err := c.http.Get(ctx, "/api/story", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, story Story) (*Story, error) {
	out := story
	if err := c.http.Post(ctx, "/api/story", story, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PhotoURL(name string) string {
	return c.http.URL(downloadPath + url.PathEscape(name))
}

// Service implements the success-story operations
type Service struct {
	api API
}

// NewService creates a success-story service
func NewService(api API) *Service {
	return &Service{api: api}
}

// List returns every story with photos resolved to loadable URLs. A failing
// backend yields an empty list; the stories are decoration on public pages.
func (s *Service) List(ctx context.Context) []Story {
	stories, err := s.api.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("error fetching success stories")
		return []Story{}
	}
	for i := range stories {
		stories[i].ProfilePhoto = s.photo(stories[i].ProfilePhoto)
	}
	if stories == nil {
		stories = []Story{}
	}
	return stories
}

// Create validates and stores a story
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Story, error) {
	req.InventionID = strings.TrimSpace(req.InventionID)
	req.InventorName = strings.TrimSpace(req.InventorName)
	if strings.TrimSpace(req.Message) == "" {
		req.Message = ""
	}
	if err := validation.Struct(req, messages); err != nil {
		return nil, err
	}

	created, err := s.api.Create(ctx, Story{
		InventionID:  req.InventionID,
		InventorName: req.InventorName,
		InvestorID:   req.InvestorID,
		Message:      req.Message,
		ProfilePhoto: req.ProfilePhoto,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("invention_id", req.InventionID).Msg("success story added")
	created.ProfilePhoto = s.photo(created.ProfilePhoto)
	return created, nil
}

func (s *Service) photo(name string) string {
	if name == "" || strings.HasPrefix(name, "http") {
		return name
	}
	return s.api.PhotoURL(name)
}

// GinHandlers contains HTTP handlers for success-story endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the success-story handlers
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListHandler handles GET /success-stories
func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.service.List(c.Request.Context()))
	}
}

// CreateHandler handles POST /success-stories
func (h *GinHandlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		story, err := h.service.Create(c.Request.Context(), req)
		response.Handle(c, story, err)
	}
}

// Package innovator serves the innovator profile and public signup
package innovator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/ksred/innovest-portal/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	MsgRegistered         = "User registered successfully!"
	MsgRegistrationFailed = "Registration failed. Please try again."
)

type innovatorError struct {
	msg    string
	status int
}

func (e *innovatorError) Error() string   { return e.msg }
func (e *innovatorError) HTTPStatus() int { return e.status }

var (
	ErrAlreadyRegistered  = &innovatorError{"User already exists with this email.", http.StatusConflict}
	ErrRegistrationFailed = &innovatorError{MsgRegistrationFailed, http.StatusBadGateway}
)

// Innovator is an innovator profile as stored by the innovator service
type Innovator struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Birthday       string `json:"birthday,omitempty"`
	Gender         string `json:"gender,omitempty"`
}

// ProfileUpdate is the editable part of a profile
type ProfileUpdate struct {
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Gender         string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Birthday       string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,url"`
}

// SignupRequest is the public innovator signup form
type SignupRequest struct {
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,url"`
	Birthday       string `json:"birthday" validate:"required,datetime=2006-01-02"`
	Gender         string `json:"gender" validate:"required,oneof=Male Female Other"`
}

var profileMessages = validation.Messages{
	"firstName.required": "First name is required",
	"lastName.required":  "Last name is required",
	"email.required":     "Email is required",
	"email.email":        "Please enter a valid email address",
	"gender.oneof":       "Gender must be Male, Female or Other",
	"birthday.required":  "Birthday is required",
	"birthday.datetime":  "Birthday must be a date in YYYY-MM-DD format",
	"profilePicture.url": "Profile picture must be a valid URL",
	"gender.required":    "Gender is required",
}

// API is the innovator service
type API interface {
	Get(ctx context.Context, id int64) (*Innovator, error)
	Update(ctx context.Context, id int64, update ProfileUpdate) error
	Register(ctx context.Context, req SignupRequest) (json.RawMessage, error)
}

// Client talks to the innovator service over REST
type Client struct {
	http *httpclient.Client
}

// NewClient wraps a transport pointed at the innovator service
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

func (c *Client) Get(ctx context.Context, id int64) (*Innovator, error) {
	var out Innovator
	if err := c.http.Get(ctx, "/api/innovator/"+strconv.FormatInt(id, 10), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, id int64, update ProfileUpdate) error {
	return c.http.Patch(ctx, "/api/innovator/"+strconv.FormatInt(id, 10), update, nil)
}

// Register returns the raw reply; the service reports the outcome in a
// status field of the body rather than in the HTTP status
func (c *Client) Register(ctx context.Context, req SignupRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.http.Post(ctx, "/api/innovator/register", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Service implements the innovator operations
type Service struct {
	api API
}

// NewService creates an innovator service
func NewService(api API) *Service {
	return &Service{api: api}
}

// Profile returns the innovator's profile
func (s *Service) Profile(ctx context.Context, id int64) (*Innovator, error) {
	return s.api.Get(ctx, id)
}

// UpdateProfile saves the profile and returns it as stored. A blank profile
// picture keeps the current one.
func (s *Service) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*Innovator, error) {
	if err := validation.Struct(update, profileMessages); err != nil {
		return nil, err
	}

	if update.ProfilePicture == "" {
		current, err := s.api.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		update.ProfilePicture = current.ProfilePicture
	}

	if err := s.api.Update(ctx, id, update); err != nil {
		return nil, err
	}
	log.Info().Int64("innovator_id", id).Msg("innovator profile updated")

	return s.api.Get(ctx, id)
}

// RegisterResult is the outcome of a successful signup
type RegisterResult struct {
	Message string `json:"message"`
}

// Register signs a new innovator up
func (s *Service) Register(ctx context.Context, req SignupRequest) (*RegisterResult, error) {
	if err := validation.Struct(req, profileMessages); err != nil {
		return nil, err
	}

	raw, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	status := gjson.GetBytes(raw, "status")
	switch {
	case !status.Exists() || status.Int() == http.StatusCreated:
		log.Info().Str("email", req.Email).Msg("innovator registered")
		return &RegisterResult{Message: MsgRegistered}, nil
	case status.Int() == http.StatusOK:
		return nil, ErrAlreadyRegistered
	default:
		log.Warn().Int64("status", status.Int()).Str("email", req.Email).Msg("innovator registration refused")
		return nil, ErrRegistrationFailed
	}
}

// GinHandlers contains HTTP handlers for innovator endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the innovator handlers
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ProfileHandler handles GET /innovator/profile
func (h *GinHandlers) ProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		profile, err := h.service.Profile(c.Request.Context(), sess.SubjectID)
		response.Handle(c, profile, err)
	}
}

// UpdateProfileHandler handles PATCH /innovator/profile
func (h *GinHandlers) UpdateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		var req ProfileUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		profile, err := h.service.UpdateProfile(c.Request.Context(), sess.SubjectID, req)
		response.Handle(c, profile, err)
	}
}

// RegisterHandler handles POST /innovators/register
func (h *GinHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.Register(c.Request.Context(), req)
		var herr *httpclient.Error
		if errors.As(err, &herr) && herr.StatusCode == 0 {
			response.WithStatus(c, http.StatusBadGateway, "Network error. Please check if the server is running.")
			return
		}
		response.Handle(c, result, err)
	}
}

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenGeneration    = errors.New("failed to generate token")
	ErrInvalidToken       = errors.New("invalid token")
)

// Credentials represents a login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string       `json:"jwt_token"`
	Expiration time.Time    `json:"expiration"`
	SessionID  string       `json:"session_id"`
	SubjectID  int64        `json:"subject_id"`
	Role       session.Role `json:"role"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	SubjectID int64  `json:"subject_id"`
	Role      string `json:"role"`
}

type account struct {
	password  string
	subjectID int64
	role      session.Role
}

// Service issues tokens at login and resolves them back to sessions.
// Identity proofing itself belongs to the external identity provider; the
// account table here only backs local and demo logins.
type Service struct {
	jwtSecret []byte
	store     *session.Store
	accounts  map[string]account
}

// NewService creates a new authentication service
func NewService(jwtSecret string, store *session.Store) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		store:     store,
		accounts:  make(map[string]account),
	}
}

// RegisterAccount registers a login for a marketplace subject
func (s *Service) RegisterAccount(username, password string, subjectID int64, role session.Role) {
	s.accounts[username] = account{password: password, subjectID: subjectID, role: role}
}

// Login verifies credentials, creates a session and signs a token bound to it
func (s *Service) Login(creds Credentials) (*TokenResponse, error) {
	acct, ok := s.accounts[creds.Username]
	if !ok || subtle.ConstantTimeCompare([]byte(acct.password), []byte(creds.Password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	sess := s.store.Create(acct.subjectID, acct.role)
	expiration := time.Now().Add(s.store.TTL())

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(acct.subjectID),
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		SessionID: sess.ID,
		SubjectID: acct.subjectID,
		Role:      string(acct.role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.store.Teardown(sess.ID)
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		Expiration: expiration,
		SessionID:  sess.ID,
		SubjectID:  acct.subjectID,
		Role:       acct.role,
	}, nil
}

// ValidateToken verifies signature and expiry and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a token to its live session
func (s *Service) Authenticate(tokenString string) (*session.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.store.Get(claims.SessionID)
}

// Logout tears the session down, closing every view it owns
func (s *Service) Logout(sessionID string) error {
	return s.store.Teardown(sessionID)
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for authentication endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// LoginHandler handles POST requests to log in and obtain a token
func (h *GinHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.Login(creds)
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info().Str("username", creds.Username).Msg("login rejected")
			response.Unauthorized(c, err.Error())
			return
		}
		response.Handle(c, token, err)
	}
}

// LogoutHandler ends the caller's session
func (h *GinHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		if err := h.service.Logout(sess.ID); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"logged_out": true})
	}
}

// MeHandler returns the caller's session identity
func (h *GinHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		response.Success(c, gin.H{
			"session_id":      sess.ID,
			"subject_id":      sess.SubjectID,
			"role":            sess.Role,
			"expires_at":      sess.ExpiresAt(),
			"bidded_products": sess.BiddedProducts(),
		})
	}
}

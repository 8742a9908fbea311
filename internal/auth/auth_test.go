package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() (*Service, *session.Store) {
	store := session.NewStore(time.Hour)
	svc := NewService("test-secret", store)
	svc.RegisterAccount("investor", "pw", 6634104, session.RoleInvestor)
	return svc, store
}

func TestLoginCreatesSession(t *testing.T) {
	svc, store := newService()

	token, err := svc.Login(Credentials{Username: "investor", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.Equal(t, int64(6634104), token.SubjectID)
	assert.Equal(t, session.RoleInvestor, token.Role)
	assert.Equal(t, 1, store.Len())

	sess, err := svc.Authenticate(token.Token)
	require.NoError(t, err)
	assert.Equal(t, token.SessionID, sess.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, store := newService()

	_, err := svc.Login(Credentials{Username: "investor", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(Credentials{Username: "ghost", Password: "pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 0, store.Len())
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newService()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		SessionID:        "whatever",
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutEndsSession(t *testing.T) {
	svc, _ := newService()
	token, err := svc.Login(Credentials{Username: "investor", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(token.SessionID))
	_, err = svc.Authenticate(token.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestLoginHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newService()
	h := NewGinHandlers(svc)

	r := gin.New()
	r.POST("/token", h.LoginHandler())

	body, _ := json.Marshal(Credentials{Username: "investor", Password: "pw"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body)))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "jwt_token")

	body, _ = json.Marshal(Credentials{Username: "investor", Password: "bad"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

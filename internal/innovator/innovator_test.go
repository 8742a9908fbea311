package innovator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	profile        Innovator
	patches        []ProfileUpdate
	registerStatus int
	patchError     string
}

func (f *fakeUpstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/innovator/1":
			json.NewEncoder(w).Encode(f.profile)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/innovator/1":
			if f.patchError != "" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": f.patchError})
				return
			}
			var u ProfileUpdate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
			f.patches = append(f.patches, u)
			f.profile.FirstName, f.profile.LastName = u.FirstName, u.LastName
			f.profile.Email, f.profile.ProfilePicture = u.Email, u.ProfilePicture
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/api/innovator/register":
			json.NewEncoder(w).Encode(map[string]interface{}{"status": f.registerStatus})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newService(t *testing.T, f *fakeUpstream) *Service {
	server := f.server(t)
	return NewService(NewClient(httpclient.New(httpclient.Config{Service: "innovator", BaseURL: server.URL})))
}

func validSignup() SignupRequest {
	return SignupRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Birthday:  "1990-12-10",
		Gender:    "Female",
	}
}

func TestUpdateProfileKeepsPicture(t *testing.T) {
	f := &fakeUpstream{profile: Innovator{ID: 1, FirstName: "Ada", ProfilePicture: "https://img.example.com/ada.png"}}
	svc := newService(t, f)

	p, err := svc.UpdateProfile(context.Background(), 1, ProfileUpdate{
		FirstName: "Augusta", LastName: "King", Email: "augusta@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", p.FirstName)
	require.Len(t, f.patches, 1)
	assert.Equal(t, "https://img.example.com/ada.png", f.patches[0].ProfilePicture)
}

func TestUpdateProfileErrors(t *testing.T) {
	f := &fakeUpstream{profile: Innovator{ID: 1}, patchError: "Email already in use"}
	svc := newService(t, f)

	_, err := svc.UpdateProfile(context.Background(), 1, ProfileUpdate{FirstName: "A", LastName: "B", Email: "bad"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter a valid email address", verr.Fields["email"])

	_, err = svc.UpdateProfile(context.Background(), 1, ProfileUpdate{
		FirstName: "A", LastName: "B", Email: "a@b.co", ProfilePicture: "https://x.example.com/p.png",
	})
	require.Error(t, err)
	assert.Equal(t, "Email already in use", err.Error())
}

func TestRegisterOutcomes(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusCreated, nil},
		{http.StatusOK, ErrAlreadyRegistered},
		{http.StatusInternalServerError, ErrRegistrationFailed},
	}
	for _, tc := range cases {
		f := &fakeUpstream{registerStatus: tc.status}
		svc := newService(t, f)

		res, err := svc.Register(context.Background(), validSignup())
		if tc.want == nil {
			require.NoError(t, err)
			assert.Equal(t, MsgRegistered, res.Message)
			continue
		}
		assert.ErrorIs(t, err, tc.want)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t, &fakeUpstream{registerStatus: http.StatusCreated})

	req := validSignup()
	req.Gender = "Unknown"
	req.Birthday = ""
	_, err := svc.Register(context.Background(), req)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Gender must be Male, Female or Other", verr.Fields["gender"])
	assert.Equal(t, "Birthday is required", verr.Fields["birthday"])
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeUpstream{profile: Innovator{ID: 1, FirstName: "Ada"}, registerStatus: http.StatusOK}
	h := NewGinHandlers(newService(t, f))
	sess := session.NewStore(time.Hour).Create(1, session.RoleInnovator)

	r := gin.New()
	r.POST("/innovators/register", h.RegisterHandler())
	authed := r.Group("/")
	authed.Use(func(c *gin.Context) {
		c.Set(session.ContextKey, sess)
		c.Next()
	})
	authed.GET("/innovator/profile", h.ProfileHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/innovator/profile", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"firstName":"Ada"`)

	body, _ := json.Marshal(validSignup())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/innovators/register", bytes.NewReader(body)))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "User already exists with this email.")
}

func TestRegisterHandlerNetworkError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := httpclient.New(httpclient.Config{Service: "innovator", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	h := NewGinHandlers(NewService(NewClient(client)))

	r := gin.New()
	r.POST("/innovators/register", h.RegisterHandler())

	body, _ := json.Marshal(validSignup())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/innovators/register", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Network error")
}

package successstory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstream struct {
	stories []Story
	fail    bool
}

func (u *upstream) start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/story" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if u.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(u.stories)
		case http.MethodPost:
			var s Story
			require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
			s.ID = int64(len(u.stories) + 1)
			u.stories = append(u.stories, s)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(s)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newService(t *testing.T, u *upstream) (*Service, string) {
	server := u.start(t)
	return NewService(NewClient(httpclient.New(httpclient.Config{Service: "success-story", BaseURL: server.URL}))), server.URL
}

func TestListResolvesPhotos(t *testing.T) {
	u := &upstream{stories: []Story{
		{InventionID: "4010", InventorName: "Ada", Message: "Funded!", ProfilePhoto: "ada.png"},
		{InventionID: "4001", InventorName: "Alan", Message: "Great", ProfilePhoto: "https://img.example.com/alan.png"},
		{InventionID: "4002", InventorName: "Grace", Message: "Thanks"},
	}}
	svc, base := newService(t, u)

	stories := svc.List(context.Background())
	require.Len(t, stories, 3)
	assert.Equal(t, base+"/api/story/download/ada.png", stories[0].ProfilePhoto)
	assert.Equal(t, "https://img.example.com/alan.png", stories[1].ProfilePhoto)
	assert.Empty(t, stories[2].ProfilePhoto)
}

func TestListFailureIsEmpty(t *testing.T) {
	svc, _ := newService(t, &upstream{fail: true})
	stories := svc.List(context.Background())
	assert.NotNil(t, stories)
	assert.Empty(t, stories)
}

func TestCreateValidation(t *testing.T) {
	u := &upstream{}
	svc, _ := newService(t, u)

	_, err := svc.Create(context.Background(), CreateRequest{
		InventionID:  "  ",
		Message:      strings.Repeat("x", 501),
		ProfilePhoto: "not a url",
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"inventionId":  "Invention ID is required",
		"inventorName": "Inventor name is required",
		"message":      "Success story message must be less than 500 characters",
		"profilePhoto": "Profile photo must be a valid URL",
	}, verr.Fields)

	_, err = svc.Create(context.Background(), CreateRequest{InventionID: "4010", InventorName: "Ada", Message: "   "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Success story message is required", verr.Fields["message"])
	assert.Empty(t, u.stories)
}

func TestCreateHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	u := &upstream{}
	svc, _ := newService(t, u)
	h := NewGinHandlers(svc)

	r := gin.New()
	r.GET("/success-stories", h.ListHandler())
	r.POST("/success-stories", h.CreateHandler())

	body, _ := json.Marshal(CreateRequest{InventionID: "4010", InventorName: "Ada", Message: "We found our investor in a week"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/success-stories", bytes.NewReader(body)))
	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, u.stories, 1)
	assert.Equal(t, "Ada", u.stories[0].InventorName)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/success-stories", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "We found our investor in a week")
}

package bidding

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/internal/types"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(svc *Service, sess *session.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewGinHandlers(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(session.ContextKey, sess)
		c.Next()
	})
	r.POST("/bid-views", h.OpenBidViewHandler())
	r.GET("/bid-views/:view_id", h.GetBidViewHandler())
	r.POST("/bid-views/:view_id/refresh", h.RefreshBidViewHandler())
	r.POST("/bid-views/:view_id/bids", h.SubmitBidHandler())
	r.POST("/bid-views/:view_id/back", h.BackToProfileHandler())
	r.DELETE("/bid-views/:view_id", h.CloseViewHandler())
	r.POST("/accept-views", h.OpenAcceptViewHandler())
	r.GET("/accept-views/:view_id", h.GetAcceptViewHandler())
	r.POST("/accept-views/:view_id/accept", h.AcceptBidHandler())
	r.POST("/accept-views/:view_id/back", h.BackToDetailHandler())
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	return w
}

type envelope[T any] struct {
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   *response.Error `json:"error"`
}

// snapshots without the rendered card, which only the browser reads
type bidViewJSON struct {
	ViewID string      `json:"viewId"`
	State  State       `json:"state"`
	Bids   []types.Bid `json:"bids"`
	HasBid bool        `json:"hasBid"`
}

type acceptViewJSON struct {
	ViewID      string      `json:"viewId"`
	State       State       `json:"state"`
	SelectedBid *types.Bid  `json:"selectedBid"`
	Summary     *BidSummary `json:"summary"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestBidViewHandlers(t *testing.T) {
	api := &fakeAPI{bids: []types.Bid{bid("1", 42, 7000, 10)}, placedID: "900"}
	svc := NewService(api, Options{})
	sess := session.NewStore(time.Hour).Create(6634104, session.RoleInvestor)
	r := newRouter(svc, sess)

	w := do(r, http.MethodPost, "/bid-views", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, w.Code)
	missing := decode[json.RawMessage](t, w)
	assert.Equal(t, response.ErrCodeMissingContext, missing.Error.Code)
	assert.Equal(t, InvestorProfilePath, missing.Error.Redirect)

	w = do(r, http.MethodPost, "/bid-views", OpenBidViewRequest{Product: &product4001, InvestorID: 6634104})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opened := decode[bidViewJSON](t, w)
	assert.Equal(t, StateListing, opened.Data.State)
	viewPath := "/bid-views/" + opened.Data.ViewID

	w = do(r, http.MethodPost, viewPath+"/bids", map[string]interface{}{"bidAmount": "-5", "equity": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	invalid := decode[json.RawMessage](t, w)
	assert.Equal(t, response.ErrCodeValidationFailed, invalid.Error.Code)
	assert.Equal(t, MsgInvalidBidAmount, invalid.Error.Fields[FieldBidAmount])
	assert.NotContains(t, invalid.Error.Fields, FieldEquity)
	assert.Empty(t, api.placed)

	w = do(r, http.MethodPost, viewPath+"/bids", map[string]interface{}{"bidAmount": 5000, "equity": 8})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decode[bidViewJSON](t, w)
	assert.True(t, placed.Data.HasBid)
	require.Len(t, placed.Data.Bids, 2)
	assert.True(t, placed.Data.Bids[0].IsMine)

	w = do(r, http.MethodPost, viewPath+"/bids", map[string]interface{}{"bidAmount": 1, "equity": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, viewPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, viewPath+"/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, viewPath+"/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	back := decode[struct {
		Redirect string        `json:"redirect"`
		State    ProfileReturn `json:"state"`
	}](t, w)
	assert.Equal(t, InvestorProfilePath, back.Data.Redirect)
	assert.Equal(t, ProfileReturn{HasBidded: true, BiddedProductID: 4001}, back.Data.State)

	w = do(r, http.MethodGet, viewPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcceptViewHandlers(t *testing.T) {
	api := &fakeAPI{bids: []types.Bid{bid("1", 42, 7000, 10), bid("2", 43, 9000, 6)}}
	svc := NewService(api, Options{})
	sess := session.NewStore(time.Hour).Create(1, session.RoleInnovator)
	r := newRouter(svc, sess)

	w := do(r, http.MethodPost, "/accept-views", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, InnovationDetailPath, decode[json.RawMessage](t, w).Error.Redirect)

	w = do(r, http.MethodPost, "/accept-views", OpenAcceptViewRequest{InventionID: 4001})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opened := decode[acceptViewJSON](t, w)
	require.NotNil(t, opened.Data.Summary)
	viewPath := "/accept-views/" + opened.Data.ViewID

	w = do(r, http.MethodPost, viewPath+"/accept", map[string]interface{}{"orderId": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, api.selected)

	w = do(r, http.MethodPost, viewPath+"/accept", map[string]interface{}{"orderId": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[acceptViewJSON](t, w)
	assert.Equal(t, StateAccepted, accepted.Data.State)
	require.NotNil(t, accepted.Data.SelectedBid)
	assert.Equal(t, int64(43), accepted.Data.SelectedBid.InvestorID)

	w = do(r, http.MethodPost, viewPath+"/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), InnovationDetailPath)
}

func TestCloseViewHandler(t *testing.T) {
	svc := NewService(&fakeAPI{}, Options{})
	sess := session.NewStore(time.Hour).Create(6634104, session.RoleInvestor)
	r := newRouter(svc, sess)

	w := do(r, http.MethodPost, "/bid-views", OpenBidViewRequest{Product: &product4001})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[bidViewJSON](t, w).Data.ViewID

	w = do(r, http.MethodDelete, "/bid-views/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, svc.Registry().Len())

	w = do(r, http.MethodDelete, "/bid-views/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

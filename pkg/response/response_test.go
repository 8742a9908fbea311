package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fieldErr struct{}

func (fieldErr) Error() string                  { return "validation failed" }
func (fieldErr) FieldErrors() map[string]string { return map[string]string{"equity": "bad"} }

type redirectErr struct{}

func (redirectErr) Error() string      { return "no product selected" }
func (redirectErr) RedirectTo() string { return "/investor-profile" }

type statusErr struct{}

func (statusErr) Error() string   { return "upstream says no" }
func (statusErr) HTTPStatus() int { return http.StatusBadGateway }

func run(method string, data interface{}, err error) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)

	Handle(c, data, err)

	var body Response
	json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHandleSuccess(t *testing.T) {
	w, body := run(http.MethodGet, gin.H{"a": 1}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)

	w, _ = run(http.MethodPost, gin.H{"a": 1}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandleErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", gorm.ErrRecordNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"fields", fmt.Errorf("wrapped: %w", fieldErr{}), http.StatusBadRequest, ErrCodeValidationFailed},
		{"redirect", redirectErr{}, http.StatusConflict, ErrCodeMissingContext},
		{"status", statusErr{}, http.StatusBadGateway, ErrCodeUpstream},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := run(http.MethodGet, nil, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestHandleCarriesDetails(t *testing.T) {
	_, body := run(http.MethodPost, nil, fieldErr{})
	assert.Equal(t, map[string]string{"equity": "bad"}, body.Error.Fields)

	_, body = run(http.MethodGet, nil, redirectErr{})
	assert.Equal(t, "/investor-profile", body.Error.Redirect)

	_, body = run(http.MethodGet, nil, statusErr{})
	assert.Equal(t, "upstream says no", body.Error.Message)

	_, body = run(http.MethodGet, nil, errors.New("secret internals"))
	assert.Equal(t, "An unexpected error occurred", body.Error.Message)
}

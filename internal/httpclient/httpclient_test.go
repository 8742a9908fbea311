package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestPostSendsJSONAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/widgets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var in widget
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = 7
		json.NewEncoder(w).Encode(in)
	}))
	defer server.Close()

	client := New(Config{Service: "widgets", BaseURL: server.URL})
	ctx := WithRequestID(context.Background(), "req-1")

	var out widget
	err := client.Post(ctx, "/api/widgets", widget{Name: "gear"}, &out)
	require.NoError(t, err)
	assert.Equal(t, widget{ID: 7, Name: "gear"}, out)
}

func TestErrorMessagePreserved(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusBadRequest, `{"error":"bid window closed"}`, "bid window closed"},
		{"message field", http.StatusInternalServerError, `{"message":"db down"}`, "db down"},
		{"nested envelope", http.StatusConflict, `{"success":false,"error":{"code":"X","message":"duplicate bid"}}`, "duplicate bid"},
		{"plain text", http.StatusBadGateway, `upstream exploded`, "upstream exploded"},
		{"empty body", http.StatusServiceUnavailable, ``, "Server returned status 503 Service Unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := New(Config{Service: "widgets", BaseURL: server.URL})
			err := client.Get(context.Background(), "/x", nil)
			require.Error(t, err)

			var upstreamErr *Error
			require.True(t, errors.As(err, &upstreamErr))
			assert.Equal(t, tc.want, upstreamErr.Error())
			assert.Equal(t, tc.status, upstreamErr.StatusCode)
			assert.Equal(t, "widgets", upstreamErr.Service)
		})
	}
}

func TestTransportErrorKeepsMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(Config{Service: "widgets", BaseURL: url})
	err := client.Get(context.Background(), "/x", nil)
	require.Error(t, err)

	var upstreamErr *Error
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, 0, upstreamErr.StatusCode)
	assert.NotEmpty(t, upstreamErr.Message)
	assert.Equal(t, http.StatusBadGateway, upstreamErr.HTTPStatus())
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, (&Error{StatusCode: 404}).HTTPStatus())
	assert.Equal(t, http.StatusConflict, (&Error{StatusCode: 409}).HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, (&Error{StatusCode: 422}).HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, (&Error{StatusCode: 500}).HTTPStatus())
}

func TestEmptySuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(Config{Service: "widgets", BaseURL: server.URL})
	var out widget
	require.NoError(t, client.Patch(context.Background(), "/x", widget{}, &out))
	assert.Zero(t, out)
}

func TestOversizedResponseRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"`))
		w.Write([]byte(strings.Repeat("x", MaxResponseBytes)))
		w.Write([]byte(`"}`))
	}))
	defer server.Close()

	client := New(Config{Service: "widgets", BaseURL: server.URL})
	var out widget
	err := client.Get(context.Background(), "/big", &out)

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Zero(t, herr.StatusCode)
	assert.Equal(t, http.StatusBadGateway, herr.HTTPStatus())
	assert.Contains(t, herr.Message, "exceeds")
	assert.Empty(t, out.Name)
}

func TestResponseAtLimitAccepted(t *testing.T) {
	name := strings.Repeat("y", MaxResponseBytes-len(`{"name":""}`))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"` + name + `"}`))
	}))
	defer server.Close()

	client := New(Config{Service: "widgets", BaseURL: server.URL})
	var out widget
	require.NoError(t, client.Get(context.Background(), "/edge", &out))
	assert.Len(t, out.Name, len(name))
}

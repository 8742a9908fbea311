package bidding

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ksred/innovest-portal/pkg/response"
)

// Notices shown to the user when a backend call fails
const (
	MsgLoadFailed   = "Failed to load bidding information"
	MsgSubmitFailed = "Failed to place bid. Please try again."
	MsgAcceptFailed = "Failed to accept bid. Please try again."
)

// viewError is a fixed failure of a view operation with the status the
// portal answers it with
type viewError struct {
	msg    string
	status int
}

func (e *viewError) Error() string   { return e.msg }
func (e *viewError) HTTPStatus() int { return e.status }

var (
	ErrViewNotFound       error = &viewError{"view not found", http.StatusNotFound}
	ErrViewClosed         error = &viewError{"view has been closed", http.StatusGone}
	ErrViewLoading        error = &viewError{"bids are still loading", http.StatusConflict}
	ErrAlreadyBid         error = &viewError{"You have already placed a bid on this invention", http.StatusConflict}
	ErrSubmissionInFlight error = &viewError{"A bid submission is already in progress", http.StatusConflict}
	ErrBiddingClosed      error = &viewError{"Bidding is not open for this invention", http.StatusConflict}
	ErrAcceptInFlight     error = &viewError{"A bid acceptance is already in progress", http.StatusConflict}
	ErrAlreadyAccepted    error = &viewError{"A bid has already been accepted in this view", http.StatusConflict}
	ErrBidNotFound        error = &viewError{"bid is not listed for this invention", http.StatusNotFound}
	ErrInvestorMismatch   error = &viewError{"investor id does not match the session", http.StatusForbidden}
	ErrNotOwner           error = &viewError{"only the innovation owner can accept bids", http.StatusForbidden}
)

// ValidationError carries field-scoped messages for invalid input. It never
// results from a network call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, field := range []string{FieldBidAmount, FieldEquity, FieldOrderID} {
		if msg, ok := e.Fields[field]; ok {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}

// MissingContextError means a view was opened without the state it needs.
// The client is sent back to Redirect instead of rendering a broken view.
type MissingContextError struct {
	Message  string
	Redirect string
}

func (e *MissingContextError) Error() string      { return e.Message }
func (e *MissingContextError) RedirectTo() string { return e.Redirect }

// ActionError is a failed submit or accept. Message is the user-facing notice,
// Err the upstream failure.
type ActionError struct {
	Message string
	Err     error
}

func (e *ActionError) Error() string { return e.Message }
func (e *ActionError) Unwrap() error { return e.Err }

func (e *ActionError) HTTPStatus() int {
	var sc response.StatusCoder
	if errors.As(e.Err, &sc) {
		return sc.HTTPStatus()
	}
	return http.StatusBadGateway
}

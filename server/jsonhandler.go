package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"google.golang.org/genproto/googleapis/rpc/code"
)

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Code     int32  `json:"code"`
	CodeName string `json:"codeName"`
	Message  string `json:"message"`
}

// JSONHandler is an HTTP handler whose result is encoded as JSON. Errors are
// rendered as an ErrorResponse with the status derived from the error code.
// Handlers may set headers on w but must not write the body.
type JSONHandler func(w http.ResponseWriter, req *http.Request) (any, error)

func (fn JSONHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := fn(w, r)
	if err != nil {
		logging.TrackError(r, err)
		if errors.HTTPStatusCode(err) >= http.StatusInternalServerError {
			logging.Errorw(r.Context(), "JSON handler error", "error", err)
		} else {
			logging.Warnw(r.Context(), "JSON handler error", "error", err)
		}
		writeJSON(w, errors.HTTPStatusCode(err), errorResponse(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func errorResponse(err error) *ErrorResponse {
	c := int32(errors.Code(err))
	return &ErrorResponse{
		Code:     c,
		CodeName: code.Code_name[c],
		Message:  errors.PublicMessage(err, err.Error()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// redirectHandler serves browser-facing routes. A handler returns the
// location to send the user to; failures send the user to the login page
// with the error code in the query string.
type redirectHandler func(w http.ResponseWriter, r *http.Request) (string, error)

func (fn redirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	location, err := fn(w, r)
	if err != nil {
		logging.TrackError(r, err)
		logging.Warnw(r.Context(), "login flow failed", "error", err)
		location = loginErrorURL(err)
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// loginErrorURL returns /login?error=<code>, e.g. /login?error=unauthenticated.
func loginErrorURL(err error) string {
	q := url.Values{}
	q.Set("error", errorCode(err))
	return "/login?" + q.Encode()
}

func errorCode(err error) string {
	return strings.ToLower(code.Code_name[int32(errors.Code(err))])
}

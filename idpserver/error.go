package idpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	errInvalidRequest = &httpError{Code: http.StatusBadRequest}
	errUnknownUser    = &httpError{Code: http.StatusUnauthorized, Message: "User not found"}
	errIssuanceFailed = &httpError{Code: http.StatusInternalServerError, Message: "Error processing SAML login"}
)

// httpError is an error that knows which status code it maps to.
type httpError struct {
	Code    int
	Message string
	Err     error
}

func (e *httpError) WithMessage(msg string) *httpError {
	ne := *e
	ne.Message = msg
	return &ne
}

func (e *httpError) WithError(err error) *httpError {
	ne := *e
	ne.Err = errors.WithStack(err)
	return &ne
}

func (e *httpError) Unwrap() error {
	return e.Err
}

func (e *httpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// writeError logs err and emits it as a JSON body with the mapped
// status code. Non-httpError values become opaque 500s so internal
// detail does not leak.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	he, ok := err.(*httpError)
	if !ok {
		he = &httpError{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError), Err: err}
	}
	s.log.WithError(err).Error("request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.Code)
	json.NewEncoder(w).Encode(struct { //nolint:errcheck
		Error string `json:"error"`
	}{Error: he.Message})
}

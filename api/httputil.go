package api

import (
	"encoding/json"
	"net/http"
)

// httpError pairs a cause with the HTTP status it should be reported as.
// Handlers return plain errors; wrapHandlerFunc unwraps an *httpError for
// its status and falls back to 500 for anything else.
type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string { return e.cause.Error() }

// httpErrorf builds an httpError with the given status.
func httpErrorf(status int, cause error) error {
	return &httpError{cause: cause, status: status}
}

func badRequest(cause error) error { return httpErrorf(http.StatusBadRequest, cause) }
func notFoundErr(cause error) error { return httpErrorf(http.StatusNotFound, cause) }

// handlerFunc is like http.HandlerFunc but returns an error; wrapHandlerFunc
// maps it to a status code and a plain-text error body.
type handlerFunc func(http.ResponseWriter, *http.Request) error

func wrapHandlerFunc(f handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			status := http.StatusInternalServerError
			if he, ok := err.(*httpError); ok {
				status = he.status
			}
			http.Error(w, err.Error(), status)
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(v)
}

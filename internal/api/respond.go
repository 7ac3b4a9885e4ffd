package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samvad-hq/samvad-news-reader/internal/preview"
	"github.com/samvad-hq/samvad-news-reader/internal/session"
	"github.com/samvad-hq/samvad-news-reader/pkg/newsapi"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors to HTTP statuses; anything unknown is an upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidRange),
		errors.Is(err, session.ErrInvalidSource),
		errors.Is(err, session.ErrUnknownStrategy),
		errors.Is(err, preview.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrWrongStrategy),
		errors.Is(err, session.ErrNoSource),
		errors.Is(err, session.ErrClosed):
		return http.StatusConflict
	}
	if apiErr, ok := newsapi.AsAPIError(err); ok && apiErr.StatusCode == http.StatusTooManyRequests {
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

func fail(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

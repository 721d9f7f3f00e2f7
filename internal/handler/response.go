package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// Error codes written in error bodies.
const (
	CodeNotAuthenticated = "not_authenticated"
	CodeForbidden        = "forbidden"
	CodeBlocked          = "blocked"
	CodeValidationFailed = "validation_failed"
	CodeConflict         = "conflict"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "unavailable"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal"
)

// APIError is the body of every error response.
type APIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

type errorBody struct {
	Error APIError `json:"error"`
}

// listBody wraps paginated list responses.
type listBody[T any] struct {
	Items  []*T  `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func newListBody[T any](r *repository.ListResult[T]) listBody[T] {
	items := r.Items
	if items == nil {
		items = []*T{}
	}
	return listBody[T]{Items: items, Total: r.Total, Limit: r.Limit, Offset: r.Offset}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps an error onto its HTTP status and body.
func errorStatus(err error) (int, APIError) {
	body := APIError{Message: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		body.Expected = cerr.Expected
		body.Actual = cerr.Actual
	}

	switch domain.Kind(err) {
	case domain.ErrNotAuthenticated:
		body.Code = CodeNotAuthenticated
		return http.StatusUnauthorized, body
	case domain.ErrForbidden:
		body.Code = CodeForbidden
		return http.StatusForbidden, body
	case domain.ErrBlocked:
		body.Code = CodeBlocked
		return http.StatusForbidden, body
	case domain.ErrValidationFailed:
		body.Code = CodeValidationFailed
		return http.StatusUnprocessableEntity, body
	case domain.ErrConflict:
		body.Code = CodeConflict
		return http.StatusConflict, body
	case domain.ErrNotFound:
		body.Code = CodeNotFound
		return http.StatusNotFound, body
	case domain.ErrUnavailable:
		body.Code = CodeUnavailable
		body.Message = "service temporarily unavailable"
		return http.StatusServiceUnavailable, body
	}

	body.Code = CodeInternal
	body.Message = "internal server error"
	return http.StatusInternalServerError, body
}

// writeError writes err as a JSON error body. Unexpected errors are logged
// and reported without details.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: body})
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.NewValidationError("body", fmt.Sprintf("must be at most %d bytes", maxErr.Limit))
		}
		return domain.NewValidationError("body", "is not valid JSON")
	}
	return nil
}

// uuidParam parses a UUID route parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(key, "must be a non-negative integer")
	}
	return n, nil
}

// boolQuery parses an optional boolean query parameter.
func boolQuery(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.NewValidationError(key, "must be a boolean")
	}
	return b, nil
}

// pageQuery reads limit and offset.
func pageQuery(r *http.Request) (repository.ListOptions, error) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		return repository.ListOptions{}, err
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		return repository.ListOptions{}, err
	}
	return repository.ListOptions{Limit: limit, Offset: offset}, nil
}

package httputil

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"videotube/internal/logging"
	"videotube/internal/model"
)

// Error codes returned in the "code" field of error responses
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidReference = "INVALID_REFERENCE"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every error: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent
			logging.Debug().Err(err).Msg("encode response")
		}
	}
}

// DecodeJSON reads a JSON body of at most 1MB into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewError(model.ErrValidation, "invalid request body")
	}
	return nil
}

func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func WriteUnauthorizedWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

type errorMapping struct {
	kind   error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{model.ErrValidation, http.StatusBadRequest, ErrCodeValidation},
	{model.ErrInvalidReference, http.StatusBadRequest, ErrCodeInvalidReference},
	{model.ErrInvalidOperation, http.StatusBadRequest, ErrCodeInvalidOperation},
	{model.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized},
	{model.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{model.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{model.ErrConflict, http.StatusConflict, ErrCodeConflict},
}

// StatusFor maps an error to its HTTP status, stable code and client message.
// Errors of no known kind are internal and get a generic message.
func StatusFor(err error) (status int, code, message string) {
	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		for _, m := range errorMappings {
			if errors.Is(domainErr.Kind, m.kind) {
				code = m.code
				if domainErr.Code != "" {
					code = domainErr.Code
				}
				return m.status, code, domainErr.Message
			}
		}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return m.status, m.code, m.kind.Error()
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
}

// WriteServiceError writes the response for an error returned by a service.
// Internal errors are logged with the request id; their detail never reaches the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := StatusFor(err)
	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	WriteError(w, status, code, message)
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// maxBodyBytes bounds request bodies; boundaries with many vertices fit
// comfortably.
const maxBodyBytes = 1 << 20

// envelope is the JSON body of every response. "status" is filled in by
// success and fail.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func success(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["status"] = "success"
	writeJSON(w, status, body)
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code plantation.Code) int {
	switch code {
	case plantation.CodeValidation, plantation.CodeGeospatial:
		return http.StatusBadRequest
	case plantation.CodeNotFound:
		return http.StatusNotFound
	case plantation.CodeConflict:
		return http.StatusConflict
	case plantation.CodeForbidden:
		return http.StatusForbidden
	case plantation.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope for err. Domain errors keep their message
// and details; anything else is logged and reported as a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	body := envelope{"status": "error"}
	details := map[string]any{}

	status := http.StatusInternalServerError
	if de, ok := plantation.AsError(err); ok {
		status = statusFor(de.Code)
		body["code"] = de.Code
		body["message"] = de.Message
		for k, v := range de.Details {
			details[k] = v
		}
	} else {
		body["message"] = "internal server error"
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	if s.debug {
		details["stack"] = eris.ToString(err, true)
	}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return plantation.Validation("request body is required", nil)
		case errors.As(err, &maxErr):
			return plantation.Validation("request body is too large", map[string]any{"limit": maxErr.Limit})
		default:
			return plantation.Validation("invalid JSON body", map[string]any{"error": err.Error()})
		}
	}
	return nil
}

// decodeValid decodes and validates a request body.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decode(w, r, dst); err != nil {
		return err
	}
	return plantation.Validate(dst)
}

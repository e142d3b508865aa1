package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const maxRequestBodySize = 1 << 20 // 1MB

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps a service error to its HTTP status by kind.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.KindValidation:
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case domain.KindForbidden:
		respondError(w, http.StatusForbidden, "permission_denied", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal server error",
			Code:    "internal_error",
			Details: "storage failure",
		})
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// The returned message is safe to show to the client.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return "invalid JSON body", false
	}

	if err := validate.Struct(dst); err != nil {
		var vErrs validator.ValidationErrors
		if !errors.As(err, &vErrs) {
			return "validation failed", false
		}
		msgs := make([]string, 0, len(vErrs))
		for _, vErr := range vErrs {
			switch vErr.Tag() {
			case "required":
				msgs = append(msgs, fmt.Sprintf("%s is required", vErr.Field()))
			case "min", "gte":
				msgs = append(msgs, fmt.Sprintf("%s must be at least %s", vErr.Field(), vErr.Param()))
			case "oneof":
				msgs = append(msgs, fmt.Sprintf("%s must be one of %s", vErr.Field(), vErr.Param()))
			default:
				msgs = append(msgs, fmt.Sprintf("%s is invalid", vErr.Field()))
			}
		}
		return strings.Join(msgs, "; "), false
	}
	return "", true
}

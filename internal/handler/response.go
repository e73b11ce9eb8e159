package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"storyteller-admin/internal/middleware"
	"storyteller-admin/internal/model"
	"storyteller-admin/internal/upstream"
	"storyteller-admin/pkg/apierror"
)

const maxJSONBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, model.APIResponse{Message: message, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.ErrorResponse{Message: model.InternalServerErrorMessage}

	var apiErr *apierror.APIError
	var upstreamErr *upstream.Error
	var validationErrs validator.ValidationErrors

	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Message = apiErr.Message
		body.Error = apiErr.Detail
	} else if errors.As(err, &upstreamErr) {
		status = upstreamErr.Status
		body.Message = upstreamErr.Message
		body.Error = upstreamErr.Body
	} else if errors.As(err, &validationErrs) {
		status = http.StatusBadRequest
		body.Message = "Validation failed"
		body.Error = formatValidationErrors(validationErrs)
	} else if errors.Is(err, model.ErrUnauthorizedRole) {
		status = http.StatusForbidden
		body.Message = "Unauthorized role"
	} else if errors.Is(err, model.ErrRunNotFound) {
		status = http.StatusNotFound
		body.Message = "Pipeline run not found"
	} else if errors.Is(err, model.ErrMissingToken) {
		status = http.StatusInternalServerError
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Message = "Invalid input"
		body.Error = err.Error()
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeJSON(w, status, body)
}

// writeStepError reports a failed generation step under its fixed message.
// Upstream failures keep their status; validation errors pass through.
func writeStepError(w http.ResponseWriter, err error, message string) {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		writeError(w, err)
		return
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) || errors.Is(err, model.ErrInvalidInput) {
		writeError(w, err)
		return
	}

	if upstreamErr, ok := upstream.AsError(err); ok {
		slog.Warn(strings.ToLower(message), "status", upstreamErr.Status, "error", upstreamErr.Message)
		writeJSON(w, upstreamErr.Status, model.ErrorResponse{Message: message, Error: upstreamErr.Message})
		return
	}

	slog.Error(strings.ToLower(message), "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Message: message})
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "email":
			out[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "min", "gte":
			out[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "max", "lte":
			out[field] = fmt.Sprintf("%s must be at most %s", field, e.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", field, e.Param())
		case "eqfield":
			out[field] = fmt.Sprintf("%s must match %s", field, e.Param())
		default:
			out[field] = fmt.Sprintf("%s failed the %s check", field, e.Tag())
		}
	}
	return out
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("Request body is required", nil)
		}
		return apierror.BadRequest("Invalid JSON body", err.Error())
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return apierror.BadRequest("Validation failed", formatValidationErrors(validationErrs))
		}
		return err
	}

	return nil
}

// sessionToken returns the caller's bearer token. A missing token is a local
// failure and answers 500, like any other unexpected condition.
func sessionToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		slog.Warn("proxy request without session token", "path", r.URL.Path)
		writeError(w, model.ErrMissingToken)
		return "", false
	}
	return token, true
}

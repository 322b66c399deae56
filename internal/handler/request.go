package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/hd-notes/internal/apperror"
)

// validate is shared by all handlers. The validator caches struct metadata
// internally, so a single instance is both safe and cheap.
var validate = validator.New()

type signupRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	DOB   string `json:"dob" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type otpRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type googleRequest struct {
	Token string `json:"token" validate:"required"`
}

type noteRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// decodeValid decodes the JSON body into T and runs struct validation.
// Failures come back as apperror validation errors, so handlers can pass
// them straight to writeError.
func decodeValid[T any](r *http.Request) (T, error) {
	var req T

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, apperror.ValidationFailed("body", "Invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return req, apperror.ValidationFailed(
				strings.ToLower(invalid[0].Field()),
				validationMessage(invalid[0]),
			)
		}
		return req, apperror.ValidationFailed("body", "Invalid request body")
	}

	return req, nil
}

// validationMessage turns a single field error into client-facing text.
// Only the tags used by our request structs are spelled out.
func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email"
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

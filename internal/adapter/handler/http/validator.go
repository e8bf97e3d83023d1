package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

// RequestValidator adapts go-playground/validator to echo.Validator and
// reports failures as VALIDATION_ERROR with per field details.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("https_url", func(fl validator.FieldLevel) bool {
		return usecase.ValidateWebhookURL(fl.Field().String()) == nil
	})

	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domainErrors.NewValidationError("invalid request")
	}

	details := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperrors.FieldError{
			Field:   fe.Field(),
			Message: describe(fe),
		})
	}
	return domainErrors.NewValidationError("invalid request", details...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid_rfc4122":
		return "must be a valid uuid"
	case "https_url":
		return "must be a valid https url"
	default:
		return "is invalid"
	}
}

// bindAndValidate binds the request into req and validates it. Malformed
// bodies are reported as VALIDATION_ERROR.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domainErrors.NewValidationError("invalid request body")
	}
	return c.Validate(req)
}

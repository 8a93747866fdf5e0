// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		ValidationProblem(w, verrs)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid Status Transition", err.Error())
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrDuplicateNumber):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// ValidationProblem reports struct validation failures field by field.
func ValidationProblem(w http.ResponseWriter, verrs validator.ValidationErrors) {
	fields := make(map[string]string, len(verrs))
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := describe(fe)
		fields[fe.Field()] = msg
		parts = append(parts, fe.Field()+" "+msg)
	}
	JSON(w, http.StatusBadRequest, ProblemDetail{
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Detail: strings.Join(parts, "; "),
		Fields: fields,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "required_if":
		return "is required for NDIS quotes"
	case "numeric":
		return "must be numeric"
	case "postcode":
		return "must be a 4 digit postcode"
	case "len":
		return fmt.Sprintf("must be %s characters", fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

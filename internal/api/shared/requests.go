package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ValidateRequest validates v with its own Validate method when it has one,
// and with its struct tags otherwise.
func ValidateRequest(v interface{}) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}

// ValidationMessage turns a validator error into a short client message.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Invalid %s: required field", fe.Field())
	case "oneof":
		return fmt.Sprintf("Invalid %s: must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Invalid %s", fe.Field())
	}
}

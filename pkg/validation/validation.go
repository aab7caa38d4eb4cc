// Package validation turns binding failures into apperr.ValidationError and
// hosts the custom validators registered on gin's engine.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/aura-events/backend/pkg/apperr"
)

// Registrar installs custom rules on a validator.
type Registrar func(v *validator.Validate) error

// Setup configures gin's validator to report JSON field names and installs registrars.
func Setup(registrars ...Registrar) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return Configure(v, registrars...)
}

// Configure applies the JSON tag name func and registrars to v.
func Configure(v *validator.Validate, registrars ...Registrar) error {
	v.RegisterTagNameFunc(jsonName)
	for _, r := range registrars {
		if err := r(v); err != nil {
			return err
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// FromBinding converts an error from ShouldBind* into a ValidationError.
func FromBinding(err error) error {
	if err == nil {
		return nil
	}
	out := apperr.NewValidation()
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			out.Add(fe.Field(), Message(fe))
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		out.Add(field, "must be of type "+typeErr.Type.String())
	case errors.As(err, &synErr):
		out.Add("body", "malformed JSON")
	default:
		out.Add("body", err.Error())
	}
	return out
}

// Message renders one field error the way API clients see it.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("may not be greater than %s characters", fe.Param())
		}
		return "may not be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "dive":
		return "is invalid"
	}
	if msg, ok := customMessages[fe.Tag()]; ok {
		return msg
	}
	return "failed " + fe.Tag() + " validation"
}

var customMessages = map[string]string{}

// RegisterMessage sets the message reported for a custom tag.
func RegisterMessage(tag, msg string) {
	customMessages[tag] = msg
}

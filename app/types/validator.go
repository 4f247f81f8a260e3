package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+\d{1,3}\s?\d{4,14}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(useJSONTagNames)
	_ = v.RegisterValidation("phone", validatePhone)
	return v
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

// fieldMessages maps "<json field>.<tag>" to the message returned to clients.
var fieldMessages = map[string]string{
	"name.required":       "Name is required",
	"email.required":      "Invalid email format",
	"email.email":         "Invalid email format",
	"password.required":   "Password is required",
	"phone.phone":         "Invalid phone number format",
	"website.url":         "Invalid URL format for website",
	"github_url.url":      "Invalid URL format for github_url",
	"birth_date.datetime": "Invalid date format",
}

// validateStruct runs the struct tags and turns the first failure into a
// client-facing error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	fieldErr := errs[0]
	if message, ok := fieldMessages[fieldErr.Field()+"."+fieldErr.Tag()]; ok {
		return errors.New(message)
	}
	if fieldErr.Tag() == "max" {
		return fmt.Errorf("%s must be at most %s characters", fieldErr.Field(), fieldErr.Param())
	}
	return fmt.Errorf("Invalid value for %s", fieldErr.Field())
}

// IsEmail reports whether value is a syntactically valid email address.
func IsEmail(value string) bool {
	return validate.Var(value, "required,email") == nil
}

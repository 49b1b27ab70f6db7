package utils

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate         *validator.Validate
	packageNameRegex = regexp.MustCompile(`^[a-z0-9._\-\[\]>=<!, ]+$`)
)

// A single validator instance is shared because it caches struct parsing.
func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := validate.RegisterValidation("package_name", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return IsValidPackageName(str)
	})
	if err != nil {
		panic(err)
	}
}

// NormalizePackageName trims and lower-cases a requested package name.
func NormalizePackageName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsValidPackageName reports whether an already normalized name is non-empty
// and only uses letters, digits and the characters ._-[]>=<!, and space.
func IsValidPackageName(name string) bool {
	return name != "" && packageNameRegex.MatchString(name)
}

// ValidateStruct runs the struct tags of v and converts failures into a
// 400 APIError naming the first offending field.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return BadRequest(validationMessage(fe))
	}
	return BadRequest(err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("Invalid %s %q: must be one of %s", fe.Field(), fmt.Sprint(fe.Value()), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "package_name":
		return fmt.Sprintf("Invalid package name %q: only letters, digits and ._-[]>=<!, are allowed", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("Validation failed for %s on %q", fe.Field(), fe.Tag())
	}
}

// ReadJSON decodes the request body into v and validates it.
func ReadJSON(r *http.Request, v interface{}) error {
	if err := ParseJSONBody(r, v); err != nil {
		return BadRequest(fmt.Sprintf("Invalid request body: %s", err.Error()))
	}
	return ValidateStruct(v)
}

package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"pad-sync-server/pkg/roomkey"

	"github.com/go-playground/validator/v10"
)

var defaultValidator = NewValidator()

// NewValidator returns a validator that knows the roomkey tag and reports
// fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("roomkey", func(fl validator.FieldLevel) bool {
		return roomkey.Valid(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks s against its struct tags and converts the first failure
// into a ValidationError.
func Validate(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return &ValidationError{Message: err.Error()}
}

func ValidateRoomKey(key string) error {
	if !roomkey.Valid(key) {
		return &ValidationError{Field: "key", Message: "invalid room key format"}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "roomkey":
		return "invalid room key format"
	case "min":
		return fmt.Sprintf("must contain at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

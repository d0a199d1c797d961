package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"tutoring-service/pkg/response"
)

var (
	validate = newValidator()

	isoDateTag   = "isodate"
	isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(isoDateTag, func(fl validator.FieldLevel) bool {
		return isoDateRegex.MatchString(fl.Field().String())
	})

	return v
}

// Struct validates s and reports failures as response.ErrInvalidArgument.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", response.ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", response.ErrInvalidArgument, strings.Join(msgs, ", "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of [%s]", fe.Field(), fe.Param())
	case isoDateTag:
		return fmt.Sprintf("field '%s' must be a YYYY-MM-DD date", fe.Field())
	default:
		return fmt.Sprintf("field '%s' is invalid", fe.Field())
	}
}

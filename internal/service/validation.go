package service

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/qanda/internal/apperror"
)

// FORM VALIDATION
//
// Input structs carry `validate` tags (go-playground/validator) and `form`
// tags naming the HTML form field. Errors are reported under the form name so
// templates can show each message next to its input.

const (
	msgRequired     = "This field is required."
	msgEmail        = "Enter a valid email address."
	msgPasswordsDif = "The two password fields didn’t match."
	msgUsername     = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
)

// validate is the shared validator instance. Initialized in init() with the
// custom "username" rule and form-name reporting.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("username", validateUsername)
}

// validateUsername accepts letters, digits and @ . + - _ only.
func validateUsername(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return false
	}
	return true
}

// formErrors collects field messages before they become one *apperror.AppError.
type formErrors map[string]string

// add appends msg to field, keeping earlier messages for the same field.
func (f formErrors) add(field, msg string) {
	if prev, ok := f[field]; ok {
		f[field] = prev + " " + msg
		return
	}
	f[field] = msg
}

// err returns nil when nothing was collected.
func (f formErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperror.Invalid(f)
}

// checkStruct runs the validator over in and records the first failing rule
// of every field.
func checkStruct(in any) formErrors {
	errs := formErrors{}

	err := validate.Struct(in)
	if err == nil {
		return errs
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: a programming mistake, not bad input.
		panic(fmt.Sprintf("service: validating %T: %v", in, err))
	}
	for _, fe := range verrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = fieldMessage(fe)
	}
	return errs
}

// fieldMessage turns one failed rule into the text shown to the user.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return msgEmail
	case "eqfield":
		return msgPasswordsDif
	case "username":
		return msgUsername
	case "max":
		n := utf8.RuneCountInString(fmt.Sprint(fe.Value()))
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), n)
	default:
		return fmt.Sprintf("Enter a valid value (%s).", fe.Tag())
	}
}

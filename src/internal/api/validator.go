package api

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookshelf/src/internal/isbn"
)

var validate *validator.Validate

var (
	isbnShape = regexp.MustCompile(`^(?:\d{9}[\dX]|\d{13})$`)
	ndcShape  = regexp.MustCompile(`^\d{1,3}(?:\.\d+)?$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})

	for tag, fn := range map[string]validator.Func{
		"isbnshape": validateISBNShape,
		"ndc":       validateNDC,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("api: register %s validation: %v", tag, err))
		}
	}
}

// validateISBNShape accepts hyphenated, spaced and full-width ISBN-10/13.
// Check digits are not verified; the catalog is the authority.
func validateISBNShape(fl validator.FieldLevel) bool {
	return isbnShape.MatchString(isbn.Clean(fl.Field().String()))
}

func validateNDC(fl validator.FieldLevel) bool {
	return ndcShape.MatchString(strings.TrimSpace(fl.Field().String()))
}

// ValidationError describes one rejected request parameter.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateStruct returns one ValidationError per failed field, or nil.
// Fields are reported by their `param` tag.
func ValidateStruct(s any) []ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "isbnshape":
			message = fmt.Sprintf("%s must be a valid ISBN (10 or 13 digits)", field)
		case "ndc":
			message = fmt.Sprintf("%s must be an NDC class such as 913 or 913.6", field)
		case "gte", "lte":
			message = fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}
		out = append(out, ValidationError{Field: field, Message: message})
	}
	return out
}

func joinErrors(errs []ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

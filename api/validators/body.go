// Package validators decodes request input and turns bad input into VALIDATION_ERROR.
package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// maxJSONBody bounds JSON bodies. Uploads are multipart and never pass through here.
const maxJSONBody = 1 << 20

// enumTags are the struct tags for domain enums, with the message shown when they fail.
var enumTags = map[string]struct {
	check   func(string) bool
	message string
}{
	"media_category": {
		check:   func(v string) bool { _, err := enums.ParseMediaCategory(v); return err == nil },
		message: "must be a known media category",
	},
	"entity_type": {
		check:   func(v string) bool { return enums.ReferenceEntityType(v).IsValid() },
		message: "must be post, page or video",
	},
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	for tag, rule := range enumTags {
		check := rule.check
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	return v
}()

// DecodeJSONBody reads exactly one JSON object into dest and runs its validate tags.
// Unknown fields and trailing data are rejected.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return badBody(err)
	}
	if dec.More() {
		return badBody(errors.New("unexpected data after JSON object"))
	}
	return ValidateStruct(dest)
}

func badBody(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}

// ValidateStruct runs dest's validate tags. Field failures come back as a field to message map.
func ValidateStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	if rule, ok := enumTags[fe.Tag()]; ok {
		return rule.message
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "dive":
		return "has an invalid entry"
	default:
		return "is invalid"
	}
}

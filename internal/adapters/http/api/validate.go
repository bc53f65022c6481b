package api

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag   = "notblank"
	endsAfterTag  = "ends_after_start"
	rfc3339Layout = time.RFC3339
)

func init() { //nolint:gochecknoinits // validator setup
	validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	validate.RegisterStructValidation(createEventStructValidation, createEventRequest{})

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, endsAfterTag} {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustomErrs)
	}
}

func translateCustomErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case endsAfterTag:
		return "endAt must be after startAt"
	default:
		return ""
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// createEventStructValidation checks the window once both ends parse.
func createEventStructValidation(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(createEventRequest)
	if !ok {
		return
	}
	start, err1 := time.Parse(rfc3339Layout, req.StartAt)
	end, err2 := time.Parse(rfc3339Layout, req.EndAt)
	if err1 != nil || err2 != nil {
		return
	}
	if !end.After(start) {
		sl.ReportError(req.EndAt, "endAt", "EndAt", endsAfterTag, "")
	}
}

// fieldError describes a problem with one request field.
type fieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// validationError carries translated field errors.
type validationError struct {
	fields []fieldError
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validateStruct runs struct tags and returns a *validationError on failure.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &validationError{fields: make([]fieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.fields = append(out.fields, fieldError{
			Field: fieldPath(fe.Namespace()),
			Error: fe.Translate(translator),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

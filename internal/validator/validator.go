package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/lumenlms/progression-backend/internal/model"
)

// translator renders validation errors as English messages keyed by the
// JSON field name rather than the Go struct field.
var translator ut.Translator

// Setup wires translations and domain validations into Gin's binding
// engine. Call once during startup, before the router is built.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Reject reversed or zero-length play segments at the boundary so the
	// watch validator only ever sees well-formed intervals.
	v.RegisterStructValidation(validatePlaySegment, model.PlaySegment{})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(v, translator)
}

func validatePlaySegment(sl govalidator.StructLevel) {
	seg := sl.Current().Interface().(model.PlaySegment)
	if seg.End <= seg.Start {
		sl.ReportError(seg.End, "end", "End", "gtfield", "start")
	}
}

// TranslateErrors converts a binding error into a field -> message map.
// Non-validation errors (malformed JSON and the like) come back under a
// single "detail" key.
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the JSON request body into dst. It returns nil
// on success, otherwise the translated field error map.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

package api

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// payloadValidator checks decoded request bodies and reports failures by JSON field name.
type payloadValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newPayloadValidator() *payloadValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &payloadValidator{validate: v, trans: trans}
}

// Check returns nil or a map of field name to message.
func (v *payloadValidator) Check(payload any) map[string]string {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[fieldPath(e.Namespace())] = e.Translate(v.trans)
	}
	return fields
}

// fieldPath drops the struct name from a validator namespace:
// "submitRequest.conversation[0].role" becomes "conversation[0].role".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

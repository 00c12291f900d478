// Package validation checks request input structs against their `validate`
// tags before any state logic runs.
//
// Failures are returned as a VALIDATION_FAILED *errors.Error whose details
// map each offending field (by its json name) to an English message.
package validation

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	apperrors "github.com/tendant/simple-settings/pkg/errors"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// Validator wraps go-playground/validator with English messages
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// Option configures a Validator
type Option func(*options)

type options struct {
	publicKeyCheck func(string) bool
}

// WithPublicKeyCheck enables the pgp_public_key tag using check
func WithPublicKeyCheck(check func(string) bool) Option {
	return func(o *options) {
		o.publicKeyCheck = check
	}
}

// New constructs a Validator with English translations and custom rules.
func New(opts ...Option) (*Validator, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerCustom(validate, enTrans, o); err != nil {
		return nil, err
	}

	return &Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a VALIDATION_FAILED error on failure.
func (v *Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return apperrors.InternalWrap(err, "validation could not run")
	}

	details := make(map[string]interface{}, len(validateErrs))
	for _, fe := range validateErrs {
		if _, exists := details[fe.Field()]; exists {
			continue
		}
		details[fe.Field()] = fe.Translate(v.translator)
	}
	return apperrors.ValidationFailed(details)
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return toLowerSnake(field.Name)
	default:
		return name
	}
}

func toLowerSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func registerCustom(validate *validator.Validate, enTrans ut.Translator, o options) error {
	if o.publicKeyCheck != nil {
		check := o.publicKeyCheck
		err := validate.RegisterValidation("pgp_public_key", func(fl validator.FieldLevel) bool {
			key, ok := fl.Field().Interface().(string)
			return ok && check(strings.TrimSpace(key))
		})
		if err != nil {
			return err
		}
		if err := addTranslation(validate, enTrans, "pgp_public_key", "{0} must be a valid PGP public key"); err != nil {
			return err
		}
	}

	return validate.RegisterTranslation("eqfield", enTrans,
		func(ut ut.Translator) error {
			return ut.Add("eqfield", "{0} must match {1}", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field(), toLowerSnake(fe.Param()))
			if err != nil {
				slog.Warn("warning: error translating", "FieldError", fe, "error", err)
				return fe.Error()
			}
			return t
		},
	)
}

func addTranslation(validate *validator.Validate, enTrans ut.Translator, tag, text string) error {
	return validate.RegisterTranslation(tag, enTrans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("warning: error translating", "FieldError", fe, "error", err)
				return fe.Error()
			}
			return t
		},
	)
}

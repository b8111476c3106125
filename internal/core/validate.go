package core

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/astralmap/astralmap/internal/numerology"
)

// Validator bundles the shared validator with its english translator.
type Validator struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

var (
	validatorOnce sync.Once
	shared        *Validator
)

// SharedValidator returns the process-wide validator, building it on first use.
func SharedValidator() *Validator {
	validatorOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerCustom(v, trans, "dob", "{0} must be a real date in YYYY-MM-DD form", func(fl validator.FieldLevel) bool {
			_, err := numerology.ParseBirthDate(fl.Field().String())
			return err == nil
		})
		registerCustom(v, trans, "has_letters", "{0} must contain at least one letter a-z", func(fl validator.FieldLevel) bool {
			return numerology.NormalizeName(fl.Field().String()) != ""
		})
		registerCustom(v, trans, "parent_relation", "{0} must be one of "+relationList(), func(fl validator.FieldLevel) bool {
			return ParentRelation(fl.Field().String()).Valid()
		})

		shared = &Validator{Validate: v, Translator: trans}
	})
	return shared
}

func registerCustom(v *validator.Validate, trans ut.Translator, tag, text string, fn validator.Func) {
	_ = v.RegisterValidation(tag, fn)
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

func relationList() string {
	names := make([]string, 0, len(ParentRelations))
	for _, r := range ParentRelations {
		names = append(names, string(r))
	}
	return "[" + strings.Join(names, " ") + "]"
}

// ValidateStruct validates any tagged request struct. Failures are reported as
// a *numerology.ValidationError naming the first offending field.
func ValidateStruct(value any) error {
	err := SharedValidator().Validate.Struct(value)
	if err == nil {
		return nil
	}
	field, message := FieldAndMessage(err)
	return &numerology.ValidationError{Field: field, Reason: message}
}

// Validate checks every questionnaire field.
func (s Subject) Validate() error {
	return ValidateStruct(s)
}

// Validate checks the numerology inputs.
func (r NumerologyRequest) Validate() error {
	return ValidateStruct(r)
}

// FieldAndMessage returns the first failing field and its translated message.
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	if inv, ok := err.(*validator.InvalidValidationError); ok {
		return "", inv.Error()
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			return fe.Field(), fe.Translate(SharedValidator().Translator)
		}
	}
	return "", err.Error()
}

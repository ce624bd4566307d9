// Package validation wraps go-playground/validator with the service's custom tags
// and renders failures as VALIDATION_FAILED domain errors.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/spindit/locker-service/internal/domain"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

var (
	notBlankTag  = "notblank"
	notBlankText = "{0} cannot be blank"

	phoneTag   = "phone"
	phoneText  = "{0} must be a phone number of at least 7 characters"
	phoneRegex = regexp.MustCompile(`^[0-9+()\s-]{7,}$`)

	schoolYearTag   = "schoolyear"
	schoolYearText  = "{0} must look like 2025/26"
	schoolYearRegex = regexp.MustCompile(`^[0-9]{4}/[0-9]{2}$`)

	lockerStatusTag  = "locker_status"
	lockerStatusText = "{0} must be one of free, reserved, occupied, maintenance"

	requestStatusTag  = "request_status"
	requestStatusText = "{0} must be one of pending, reserved, expired, assigned, cancelled"

	languageTag  = "language"
	languageText = "{0} must be de or en"
)

// Validator validates request payloads.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a validator with english messages and JSON field names.
func New() *Validator {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate, translator: translator}
	v.register(notBlankTag, notBlankText, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.register(phoneTag, phoneText, regexValidation(phoneRegex))
	v.register(schoolYearTag, schoolYearText, regexValidation(schoolYearRegex))
	v.register(lockerStatusTag, lockerStatusText, func(fl validator.FieldLevel) bool {
		return domain.LockerStatus(fl.Field().String()).Valid()
	})
	v.register(requestStatusTag, requestStatusText, func(fl validator.FieldLevel) bool {
		return domain.RequestStatus(fl.Field().String()).Valid()
	})
	v.register(languageTag, languageText, func(fl validator.FieldLevel) bool {
		return domain.Language(fl.Field().String()).Valid()
	})
	return v
}

func (v *Validator) register(tag, text string, fn validator.Func) {
	_ = v.validate.RegisterValidation(tag, fn)
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Struct validates s and returns a VALIDATION_FAILED error listing each bad field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid input", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return apperrors.NewValidationError("invalid input", map[string]any{"fields": fields})
}

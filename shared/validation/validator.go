package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldError describes a single invalid field of a request payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned by Validate when one or more fields are invalid.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validator validates request payloads using struct tags and reports
// failures with English messages keyed by json field name.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// NewValidator creates a Validator with English translations registered.
// Besides the built-in tags it understands notblank, which rejects
// whitespace-only strings.
func NewValidator() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return nil, err
	}
	if err := validate.RegisterTranslation("notblank", trans,
		func(tr ut.Translator) error {
			return tr.Add("notblank", "{0} must not be blank", true)
		},
		func(tr ut.Translator, fe validator.FieldError) string {
			msg, _ := tr.T("notblank", fe.Field())
			return msg
		},
	); err != nil {
		return nil, err
	}

	return &Validator{validate: validate, trans: trans}, nil
}

// Validate checks s and returns Errors when any field is invalid.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	out := make(Errors, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: fe.Translate(v.trans),
		})
	}

	return out
}

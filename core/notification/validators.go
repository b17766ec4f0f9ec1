package notification

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

var (
	audienceTag  = "audience_or_recipients"
	audienceText = "one of audience or recipients is required"
)

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(notificationStructValidation, NewNotification{})
	core.RegisterCustomTranslation(validate, translator, audienceTag, audienceText)
}

func notificationStructValidation(sl validator.StructLevel) {
	if nn, ok := sl.Current().Interface().(NewNotification); ok {
		if nn.Audience == "" && len(nn.Recipients) == 0 {
			sl.ReportError(nn.Audience, "audience", "Audience", audienceTag, "")
			sl.ReportError(nn.Recipients, "recipients", "Recipients", audienceTag, "")
		}
	}
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.Clean()
	return validate.Struct(nn)
}

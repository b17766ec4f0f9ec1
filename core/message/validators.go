package message

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
	validate.RegisterStructValidation(broadcastStructValidation, NewBroadcast{})
	core.RegisterCustomTranslation(validate, translator, audienceTag, audienceText)
}

// broadcastStructValidation checks that a broadcast targets something.
func broadcastStructValidation(sl validator.StructLevel) {
	if nb, ok := sl.Current().Interface().(NewBroadcast); ok {
		if nb.Audience == "" && len(nb.Recipients) == 0 {
			sl.ReportError(nb.Audience, "audience", "Audience", audienceTag, "")
			sl.ReportError(nb.Recipients, "recipients", "Recipients", audienceTag, "")
		}
	}
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Clean()
	return validate.Struct(nm)
}

func (nb *NewBroadcast) Validate(validate *validator.Validate) error {
	nb.Clean()
	return validate.Struct(nb)
}

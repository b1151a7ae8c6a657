package i18n

import (
	"encoding/json"
	"log"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// I18nSupport wraps a message bundle with fr/en catalogs.
type I18nSupport struct {
	bundle *i18n.Bundle
}

// NewI18nSupport loads the locale files. A missing catalog is logged and
// skipped so single-language deployments keep working.
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	bundle := i18n.NewBundle(language.MustParse(defaultLang))
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, file := range []string{"locales/fr.json", "locales/en.json"} {
		if _, err := bundle.LoadMessageFile(file); err != nil {
			log.Printf("failed to load %s: %v", file, err)
		}
	}

	return &I18nSupport{bundle: bundle}, nil
}

// T translates a key for the given language tag. The key itself is the
// fallback when no translation exists.
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)
	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		return key
	}
	return translation
}

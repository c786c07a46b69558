// Package locale selects uz/ru display labels at the presentation boundary.
// The data model always carries both labels; only handlers flatten them.
package locale

import (
	"strings"

	"golang.org/x/text/language"

	domain "github.com/bozor-market/api/internal/domain"
)

// Locale identifies one of the storefront display languages.
type Locale string

const (
	// Uzbek is the default storefront language.
	Uzbek Locale = "uz"
	// Russian is the secondary storefront language.
	Russian Locale = "ru"
)

var supported = []language.Tag{
	language.MustParse("uz"),
	language.Russian,
}

var matcher = language.NewMatcher(supported)

// Match resolves an Accept-Language header to a supported locale, falling
// back to Uzbek.
func Match(acceptLanguage string) Locale {
	header := strings.TrimSpace(acceptLanguage)
	if header == "" {
		return Uzbek
	}
	tag, _ := language.MatchStrings(matcher, header)
	base, _ := tag.Base()
	if base.String() == "ru" {
		return Russian
	}
	return Uzbek
}

// Pick returns the label for the locale, falling back to the other language
// when the preferred label is missing.
func Pick(text domain.LocalizedText, loc Locale) string {
	uz := strings.TrimSpace(text.Uz)
	ru := strings.TrimSpace(text.Ru)
	if loc == Russian {
		if ru != "" {
			return ru
		}
		return uz
	}
	if uz != "" {
		return uz
	}
	return ru
}

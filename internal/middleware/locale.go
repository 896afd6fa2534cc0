package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

var supportedLocales = language.NewMatcher([]language.Tag{
	language.English,
	language.Indonesian,
})

// Locale negotiates the response language from X-Locale or Accept-Language
// and stores the normalized tag ("en", "id") in the request context. Only
// user-facing error messages are localized; logs stay in English.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := negotiateLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), localeContextKey{}, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func negotiateLocale(r *http.Request, fallback string) string {
	accept := r.Header.Get("X-Locale")
	if accept == "" {
		accept = r.Header.Get("Accept-Language")
	}
	if accept == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := supportedLocales.Match(tags...)
	if conf == language.No {
		return fallback
	}
	switch idx {
	case 1:
		return "id"
	default:
		return "en"
	}
}

// LocaleFromContext returns the negotiated locale, defaulting to English.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeContextKey{}).(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return "en"
}

package i18n

import "net/http"

// Middleware injects a localizer into every request context. The "lang"
// query parameter wins over Accept-Language; lang is the fallback.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var prefs []string
			if q := normalizeLang(r.URL.Query().Get("lang")); q != "" && Supported(q) {
				prefs = append(prefs, q)
			}
			if al := r.Header.Get("Accept-Language"); al != "" {
				prefs = append(prefs, al)
			}
			prefs = append(prefs, lang)
			ctx := WithLocalizer(r.Context(), NewLocalizer(prefs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

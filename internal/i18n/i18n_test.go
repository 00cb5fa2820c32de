package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NavProgress")
	if got != "My Progress" {
		t.Errorf("T(NavProgress) = %q, want 'My Progress'", got)
	}

	got = T(ctx, "CasesHeader")
	if got != "Clinical Cases" {
		t.Errorf("T(CasesHeader) = %q, want 'Clinical Cases'", got)
	}
}

func TestTranslateSpanish(t *testing.T) {
	ctx := initLang(t, "es")

	got := T(ctx, "NavProgress")
	if got != "Mi progreso" {
		t.Errorf("T(NavProgress) = %q, want 'Mi progreso'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuizScore", 1)
	if got1 != "Quiz score: 1 correct answer" {
		t.Errorf("Tp(QuizScore, 1) = %q", got1)
	}

	got5 := Tp(ctx, "QuizScore", 5)
	if got5 != "Quiz score: 5 correct answers" {
		t.Errorf("Tp(QuizScore, 5) = %q", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ModulesCompleted", map[string]any{"Done": 1, "Total": 3})
	if got != "1 of 3 modules completed" {
		t.Errorf("Td(ModulesCompleted) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestSupported(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for lang, want := range map[string]bool{"en": true, "es": true, "es-MX": true, "de": false, "??": false} {
		if got := Supported(lang); got != want {
			t.Errorf("Supported(%q) = %v, want %v", lang, got, want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(T(r.Context(), "NavCases")))
	}))

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"default", "/", "", "Cases"},
		{"accept-language", "/", "es-ES,es;q=0.9", "Casos"},
		{"query wins", "/?lang=en", "es", "Cases"},
		{"unsupported query ignored", "/?lang=de", "es", "Casos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.want)
			}
		})
	}
}

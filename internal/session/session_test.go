package session

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavelanni/retina/internal/catalog"
	"github.com/pavelanni/retina/internal/progress"
)

// newTestHandler increments the session score on POST and reports it on GET.
func newTestHandler(t *testing.T, m *Manager) http.Handler {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		p := m.Progress(r.Context())
		if r.Method == http.MethodPost {
			tr := progress.NewTracker(cat, p)
			_ = tr.MarkModuleDone("foundations")
			p.QuizScore++
			m.SaveProgress(r.Context(), tr.Progress())
		}
		fmt.Fprintf(w, "%d/%d", p.QuizScore, len(p.CompletedModules))
	})
	return m.LoadAndSave(mux)
}

func do(t *testing.T, h http.Handler, method string, cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(method, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "retina_session" {
			return rec, c
		}
	}
	return rec, cookie
}

func TestProgressScopedToSession(t *testing.T) {
	h := newTestHandler(t, New(nil, Options{}))

	rec, alice := do(t, h, http.MethodPost, nil)
	if rec.Body.String() != "1/1" {
		t.Fatalf("first POST body = %q", rec.Body.String())
	}
	if alice == nil {
		t.Fatal("expected session cookie")
	}

	rec, _ = do(t, h, http.MethodPost, alice)
	if rec.Body.String() != "2/1" {
		t.Errorf("second POST body = %q, want 2/1", rec.Body.String())
	}

	// A request without the cookie is a new session.
	rec, _ = do(t, h, http.MethodGet, nil)
	if rec.Body.String() != "0/0" {
		t.Errorf("new session body = %q, want 0/0", rec.Body.String())
	}

	rec, _ = do(t, h, http.MethodGet, alice)
	if rec.Body.String() != "2/1" {
		t.Errorf("resumed session body = %q, want 2/1", rec.Body.String())
	}
}

func TestCookieOptions(t *testing.T) {
	h := newTestHandler(t, New(nil, Options{CookiePath: "/retina/", Secure: true}))

	_, c := do(t, h, http.MethodPost, nil)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if c.Path != "/retina/" || !c.Secure || !c.HttpOnly {
		t.Errorf("unexpected cookie %+v", c)
	}
}

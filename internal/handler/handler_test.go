package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/retina/internal/assets"
	"github.com/pavelanni/retina/internal/catalog"
	appI18n "github.com/pavelanni/retina/internal/i18n"
	"github.com/pavelanni/retina/internal/model"
	"github.com/pavelanni/retina/internal/session"
	"github.com/pavelanni/retina/internal/store"
	"github.com/pavelanni/retina/internal/tutor"
)

type fakeTutor struct {
	reply string
	err   error
	got   tutor.Request
}

func (f *fakeTutor) Elaborate(_ context.Context, req tutor.Request) (string, error) {
	f.got = req
	return f.reply, f.err
}

type testEnv struct {
	srv   *httptest.Server
	store *store.Store
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestEnv(t *testing.T, tut Tutor) *testEnv {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	lib := assets.NewFS(fstest.MapFS{"retina_anatomy.jpg": {Data: pngBytes(t)}})
	h, err := New(cat, session.New(nil, session.Options{}), s, lib, tut, model.AppConfig{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	r.Use(h.BasePathMiddleware)
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: s}
}

// testClient is one browser: its own cookie jar, hence its own session.
type testClient struct {
	t   *testing.T
	env *testEnv
	c   *http.Client
}

func (e *testEnv) client(t *testing.T) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testClient{t: t, env: e, c: &http.Client{Jar: jar}}
}

func (tc *testClient) get(path string) (int, string) {
	tc.t.Helper()
	resp, err := tc.c.Get(tc.env.srv.URL + path)
	if err != nil {
		tc.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (tc *testClient) csrfToken() string {
	tc.t.Helper()
	u, _ := url.Parse(tc.env.srv.URL)
	for _, c := range tc.c.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	tc.get("/about")
	for _, c := range tc.c.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	tc.t.Fatal("no csrf cookie")
	return ""
}

func (tc *testClient) post(path string, form url.Values) (int, string) {
	tc.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", tc.csrfToken())
	resp, err := tc.c.PostForm(tc.env.srv.URL+path, form)
	if err != nil {
		tc.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (tc *testClient) check(caseID, questionID, checkID, option string) (int, string) {
	tc.t.Helper()
	return tc.post("/cases/"+caseID+"/questions/"+questionID+"/check", url.Values{
		"check_id": {checkID},
		"option":   {option},
	})
}

func (tc *testClient) progress() model.ProgressSnapshot {
	tc.t.Helper()
	code, body := tc.get("/api/progress")
	if code != http.StatusOK {
		tc.t.Fatalf("GET /api/progress: %d", code)
	}
	var snap model.ProgressSnapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		tc.t.Fatalf("decode progress: %v", err)
	}
	return snap
}

func TestSections(t *testing.T) {
	env := newTestEnv(t, nil)
	tc := env.client(t)

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/", http.StatusOK, "Retina Curriculum"},
		{"/curriculum", http.StatusOK, "Retina Curriculum"},
		{"/cases", http.StatusOK, "Sudden Curtain Vision Loss"},
		{"/progress", http.StatusOK, "csrf_token"},
		{"/about", http.StatusOK, "<footer>"},
		{"/nonexistent", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := tc.get(tt.path)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if tt.contains != "" && !strings.Contains(body, tt.contains) {
				t.Errorf("body missing %q", tt.contains)
			}
		})
	}
}

func TestModuleCompletion(t *testing.T) {
	env := newTestEnv(t, nil)
	tc := env.client(t)

	if code, _ := tc.post("/modules/foundations/done", url.Values{"return": {"progress"}}); code != http.StatusOK {
		t.Fatalf("mark done: %d", code)
	}
	snap := tc.progress()
	if snap.Percent != 33 || len(snap.CompletedModules) != 1 || snap.CompletedModules[0] != "foundations" {
		t.Errorf("after one module: %+v", snap)
	}

	tc.post("/modules/foundations/done", nil)
	if snap := tc.progress(); len(snap.CompletedModules) != 1 {
		t.Errorf("marking twice should be idempotent: %+v", snap)
	}

	tc.post("/modules/done-all", nil)
	if snap := tc.progress(); snap.Percent != 100 || snap.CompletionRatio != 1 {
		t.Errorf("after done-all: %+v", snap)
	}

	tc.post("/modules/medical_retina/undone", nil)
	if snap := tc.progress(); len(snap.CompletedModules) != 2 {
		t.Errorf("after undone: %+v", snap)
	}

	tc.post("/cases/case2/done", nil)
	if snap := tc.progress(); len(snap.CompletedCases) != 1 || snap.CompletedCases[0] != "case2" {
		t.Errorf("after case done: %+v", snap)
	}

	tc.post("/progress/reset", nil)
	snap = tc.progress()
	if snap.Percent != 0 || len(snap.CompletedModules) != 0 || len(snap.CompletedCases) != 0 || snap.QuizScore != 0 {
		t.Errorf("after reset: %+v", snap)
	}
}

func TestUnknownIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	tc := env.client(t)

	for _, path := range []string{
		"/modules/nonexistent/done",
		"/modules/nonexistent/undone",
		"/cases/case9/done",
		"/cases/case9/undone",
	} {
		if code, _ := tc.post(path, nil); code != http.StatusNotFound {
			t.Errorf("POST %s = %d, want 404", path, code)
		}
	}
	if snap := tc.progress(); len(snap.CompletedModules) != 0 || len(snap.CompletedCases) != 0 {
		t.Errorf("unknown ids changed progress: %+v", snap)
	}
}

func TestCheckCountsOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	tc := env.client(t)

	code, body := tc.check("case1", "q1", "check-a", "Retinal Detachment")
	if code != http.StatusOK {
		t.Fatalf("check: %d", code)
	}
	if !strings.Contains(body, "Correct!") {
		t.Error("expected correct feedback")
	}
	if tc.progress().QuizScore != 1 {
		t.Fatalf("score after first check = %d", tc.progress().QuizScore)
	}

	code, body = tc.check("case1", "q1", "check-a", "Retinal Detachment")
	if code != http.StatusOK {
		t.Fatalf("resubmit: %d", code)
	}
	if !strings.Contains(body, "already checked") {
		t.Error("expected already-counted notice on resubmit")
	}
	if got := tc.progress().QuizScore; got != 1 {
		t.Errorf("score after resubmit = %d, want 1", got)
	}

	tc.check("case1", "q1", "check-b", "Retinal Detachment")
	if got := tc.progress().QuizScore; got != 2 {
		t.Errorf("score after new check = %d, want 2", got)
	}

	code, body = tc.check("case1", "q2", "check-c", "OCT")
	if code != http.StatusOK || !strings.Contains(body, "Wrong.") {
		t.Errorf("wrong answer: code %d", code)
	}
	if got := tc.progress().QuizScore; got != 2 {
		t.Errorf("wrong answer changed score to %d", got)
	}

	n, err := env.store.CheckCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("recorded checks = %d, want 3", n)
	}
}

func TestCheckErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	tc := env.client(t)

	tests := []struct {
		name     string
		caseID   string
		qID      string
		checkID  string
		option   string
		wantCode int
	}{
		{"option not listed", "case1", "q1", "x1", "Glaucoma", http.StatusBadRequest},
		{"case differs", "case1", "q1", "x2", "retinal detachment", http.StatusBadRequest},
		{"missing option", "case1", "q1", "x3", "", http.StatusBadRequest},
		{"missing check id", "case1", "q1", "", "Retinal Detachment", http.StatusBadRequest},
		{"unknown case", "case9", "q1", "x4", "Retinal Detachment", http.StatusNotFound},
		{"unknown question", "case1", "q9", "x5", "Retinal Detachment", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _ := tc.check(tt.caseID, tt.qID, tt.checkID, tt.option); code != tt.wantCode {
				t.Errorf("status = %d, want %d", code, tt.wantCode)
			}
		})
	}
	if got := tc.progress().QuizScore; got != 0 {
		t.Errorf("rejected checks changed score to %d", got)
	}
}

func TestCSRFRequired(t *testing.T) {
	env := newTestEnv(t, nil)
	tc := env.client(t)
	tc.get("/curriculum")

	resp, err := tc.c.PostForm(env.srv.URL+"/modules/foundations/done", url.Values{"csrf_token": {"forged"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if snap := tc.progress(); len(snap.CompletedModules) != 0 {
		t.Error("forged request changed progress")
	}
}

var csrfFieldRE = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// A page's form token must stay valid while the browser makes other GET
// requests, such as a favicon fetch or a second tab.
func TestFormTokenSurvivesOtherRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	tc := env.client(t)

	code, body := tc.get("/curriculum")
	if code != http.StatusOK {
		t.Fatalf("GET /curriculum: %d", code)
	}
	m := csrfFieldRE.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("no csrf_token field in page")
	}
	pageToken := m[1]

	if code, _ := tc.get("/favicon.ico"); code != http.StatusNotFound {
		t.Errorf("GET /favicon.ico = %d, want 404", code)
	}
	tc.get("/cases")
	tc.get("/nonexistent")

	resp, err := tc.c.PostForm(env.srv.URL+"/modules/foundations/done", url.Values{"csrf_token": {pageToken}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST with page token = %d, want 200", resp.StatusCode)
	}
	if snap := tc.progress(); len(snap.CompletedModules) != 1 {
		t.Errorf("module not marked: %+v", snap)
	}

	// The token also survives the POST itself.
	resp, err = tc.c.PostForm(env.srv.URL+"/modules/medical_retina/done", url.Values{"csrf_token": {pageToken}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("second POST with page token = %d, want 200", resp.StatusCode)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.client(t)
	bob := env.client(t)

	alice.post("/modules/done-all", nil)
	alice.check("case2", "q1", "a1", "Macular Edema")

	if snap := bob.progress(); snap.Percent != 0 || snap.QuizScore != 0 {
		t.Errorf("second session saw first session's progress: %+v", snap)
	}
	if snap := alice.progress(); snap.Percent != 100 || snap.QuizScore != 1 {
		t.Errorf("first session: %+v", snap)
	}
}

func TestExplain(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		tc := newTestEnv(t, nil).client(t)
		code, _ := tc.post("/cases/case1/questions/q1/explain", url.Values{"option": {"CRVO"}})
		if code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", code)
		}
	})

	t.Run("answer", func(t *testing.T) {
		ft := &fakeTutor{reply: "Shafer sign supports a tear."}
		tc := newTestEnv(t, ft).client(t)
		code, body := tc.post("/cases/case1/questions/q1/explain", url.Values{
			"option":   {"CRVO"},
			"question": {"  why not CRVO?  "},
		})
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if !strings.Contains(body, "Shafer sign supports a tear.") {
			t.Error("tutor reply not rendered")
		}
		if ft.got.Correct || ft.got.Selected != "CRVO" || ft.got.LearnerQuestion != "why not CRVO?" {
			t.Errorf("tutor request = %+v", ft.got)
		}
		if tc.progress().QuizScore != 0 {
			t.Error("explain changed the score")
		}
	})

	t.Run("failure degrades", func(t *testing.T) {
		tc := newTestEnv(t, &fakeTutor{err: errors.New("down")}).client(t)
		code, body := tc.post("/cases/case1/questions/q1/explain", url.Values{"option": {"Retinal Detachment"}})
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if !strings.Contains(body, "Correct!") {
			t.Error("stored explanation should still be shown")
		}
	})
}

func TestAPIHidesAnswers(t *testing.T) {
	tc := newTestEnv(t, nil).client(t)

	code, body := tc.get("/api/cases/case1")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if strings.Contains(body, "correct_option") || strings.Contains(body, "explanation") {
		t.Errorf("case JSON leaks the answer key: %s", body)
	}
	var cs apiCase
	if err := json.Unmarshal([]byte(body), &cs); err != nil {
		t.Fatal(err)
	}
	if len(cs.Questions) != 2 || cs.Questions[1].ID != "q2" {
		t.Errorf("questions = %+v", cs.Questions)
	}

	if code, _ := tc.get("/api/modules/nonexistent"); code != http.StatusNotFound {
		t.Errorf("unknown module = %d, want 404", code)
	}

	tc.post("/modules/surgical_retina/done", nil)
	_, body = tc.get("/api/modules")
	var mods []apiModule
	if err := json.Unmarshal([]byte(body), &mods); err != nil {
		t.Fatal(err)
	}
	if len(mods) != 3 || mods[0].Done || !mods[2].Done {
		t.Errorf("modules = %+v", mods)
	}
}

func TestAssets(t *testing.T) {
	tc := newTestEnv(t, nil).client(t)

	resp, err := tc.c.Get(tc.env.srv.URL + "/assets/retina_anatomy.jpg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("asset: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if code, _ := tc.get("/assets/amd_oct.jpg"); code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", code)
	}

	_, body := tc.get("/curriculum")
	if !strings.Contains(body, `src="/assets/retina_anatomy.jpg"`) {
		t.Error("available image not rendered")
	}
	if !strings.Contains(body, "amd_oct.jpg") {
		t.Error("unavailable image should be named in its placeholder")
	}
}

func TestHealth(t *testing.T) {
	tc := newTestEnv(t, nil).client(t)
	code, body := tc.get("/healthz")
	if code != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("healthz: %d %s", code, body)
	}
}

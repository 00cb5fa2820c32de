package model

import (
	"context"
	"time"
)

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Topic is a titled block of educational text within a module.
type Topic struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	Image   string `json:"image,omitempty" yaml:"image,omitempty"` // optional asset filename
}

// Module is a top-level curriculum unit.
type Module struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Objectives []string `json:"objectives" yaml:"objectives"`
	Topics     []Topic  `json:"topics" yaml:"topics"`
}

// Question is a multiple-choice question attached to a case.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption string   `json:"correct_option" yaml:"correct_option"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
}

// HasOption reports whether opt is one of the question's options.
// The comparison is exact.
func (q Question) HasOption(opt string) bool {
	for _, o := range q.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Case is a clinical vignette with its questions.
type Case struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	History   string     `json:"history" yaml:"history"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// CatalogFile is the on-disk shape of a curriculum catalog.
type CatalogFile struct {
	Modules []Module `json:"modules" yaml:"modules"`
	Cases   []Case   `json:"cases" yaml:"cases"`
}

// CheckCommand is a single user-initiated "check answer" action.
// ID is a one-shot token rendered into the question form; a command with an
// ID that was already applied must not change the score again.
type CheckCommand struct {
	ID         string
	CaseID     string
	QuestionID string
	Selected   string
}

// CheckResult is the outcome of grading one answer.
type CheckResult struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

// ProgressSnapshot is a read-only view of a session's progress for display.
type ProgressSnapshot struct {
	CompletedModules []string `json:"completed_modules"`
	CompletedCases   []string `json:"completed_cases"`
	QuizScore        int      `json:"quiz_score"`
	TotalModules     int      `json:"total_modules"`
	TotalCases       int      `json:"total_cases"`
	CompletionRatio  float64  `json:"completion_ratio"`
	Percent          int      `json:"percent"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath        string // URL prefix for sub-path deployments (e.g. "/retina")
	SecureCookies   bool   // Set Secure flag on cookies (disable for local dev)
	AssetDir        string // directory searched for optional topic images
	SessionStore    string // memory or sqlite
	SessionLifetime time.Duration
}

// CookiePath is the path scope for session and CSRF cookies.
func (c AppConfig) CookiePath() string {
	if c.BasePath != "" {
		return c.BasePath + "/"
	}
	return "/"
}

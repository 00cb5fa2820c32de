// Package session scopes progress to one browser session.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/pavelanni/retina/internal/progress"
)

const progressKey = "progress"

// Store kinds accepted by New.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Options configures the session cookie and lifetime.
type Options struct {
	Lifetime   time.Duration
	CookiePath string
	Secure     bool
}

// Manager loads and saves progress in the request's session.
type Manager struct {
	scs *scs.SessionManager
}

// New creates a Manager. A nil store keeps sessions in memory.
func New(store scs.Store, opts Options) *Manager {
	sm := scs.New()
	if store != nil {
		sm.Store = store
	}
	if opts.Lifetime > 0 {
		sm.Lifetime = opts.Lifetime
	}
	sm.Cookie.Name = "retina_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = opts.Secure
	if opts.CookiePath != "" {
		sm.Cookie.Path = opts.CookiePath
	}
	return &Manager{scs: sm}
}

// LoadAndSave is the middleware that binds a session to each request.
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.scs.LoadAndSave(next)
}

// Progress returns the session's progress, or a fresh one for a new session.
// The returned value is a copy; persist changes with SaveProgress.
func (m *Manager) Progress(ctx context.Context) *progress.Progress {
	p, ok := m.scs.Get(ctx, progressKey).(progress.Progress)
	if !ok {
		return progress.New()
	}
	return &p
}

// SaveProgress writes p back to the session.
func (m *Manager) SaveProgress(ctx context.Context, p *progress.Progress) {
	m.scs.Put(ctx, progressKey, *p)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/retina/internal/assets"
	"github.com/pavelanni/retina/internal/catalog"
	appI18n "github.com/pavelanni/retina/internal/i18n"
	"github.com/pavelanni/retina/internal/model"
	"github.com/pavelanni/retina/internal/session"
	"github.com/pavelanni/retina/internal/store"
	"github.com/pavelanni/retina/internal/tutor"
)

// Tutor elaborates on a checked question. *tutor.Client implements it.
type Tutor interface {
	Elaborate(ctx context.Context, req tutor.Request) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	store    *store.Store
	assets   *assets.Library
	tutor    Tutor
	config   model.AppConfig
}

// New creates a new Handler. tut may be nil, which disables the tutor routes.
func New(cat *catalog.Catalog, sessions *session.Manager, s *store.Store, lib *assets.Library, tut Tutor, cfg model.AppConfig) (*Handler, error) {
	if cat == nil {
		return nil, errors.New("handler: catalog is required")
	}
	if sessions == nil {
		return nil, errors.New("handler: session manager is required")
	}
	if lib == nil {
		lib = assets.New("")
	}
	return &Handler{catalog: cat, sessions: sessions, store: s, assets: lib, tutor: tut, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/assets/{name}", h.handleAsset)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.sessions.LoadAndSave)
		r.Get("/modules", h.handleAPIModules)
		r.Get("/modules/{moduleID}", h.handleAPIModule)
		r.Get("/cases", h.handleAPICases)
		r.Get("/cases/{caseID}", h.handleAPICase)
		r.Get("/progress", h.handleAPIProgress)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.LoadAndSave)
		r.Use(h.csrfMiddleware)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, h.path("/"+string(model.SectionCurriculum)), http.StatusSeeOther)
		})
		for _, sec := range model.Sections() {
			r.Get("/"+string(sec), h.handleSection(sec))
		}

		r.Post("/modules/done-all", h.handleMarkAllModulesDone)
		r.Post("/modules/{moduleID}/done", h.handleMarkModuleDone)
		r.Post("/modules/{moduleID}/undone", h.handleUnmarkModuleDone)
		r.Post("/cases/{caseID}/done", h.handleMarkCaseDone)
		r.Post("/cases/{caseID}/undone", h.handleUnmarkCaseDone)
		r.Post("/progress/reset", h.handleReset)
		r.Post("/cases/{caseID}/questions/{questionID}/check", h.handleCheck)
		r.Post("/cases/{caseID}/questions/{questionID}/explain", h.handleExplain)
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"modules":      len(h.catalog.ModuleIDs()),
		"cases":        len(h.catalog.CaseIDs()),
		"catalog_hash": h.catalog.Hash(),
	})
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := h.assets.Open(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

// fail maps domain errors to HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, model.ErrNotFound):
		slog.Debug("not found", "path", r.URL.Path, "error", err)
		http.Error(w, appI18n.T(ctx, "NotFound"), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidSelection):
		slog.Debug("bad request", "path", r.URL.Path, "error", err)
		http.Error(w, appI18n.T(ctx, "BadRequest"), http.StatusBadRequest)
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json", "error", err)
	}
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/retina/internal/model"
)

// apiQuestion omits the answer key.
type apiQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type apiCase struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	History   string        `json:"history"`
	Done      bool          `json:"done"`
	Questions []apiQuestion `json:"questions"`
}

type apiModule struct {
	model.Module
	Done bool `json:"done"`
}

func (h *Handler) handleAPIModules(w http.ResponseWriter, r *http.Request) {
	tr := h.tracker(r.Context())
	modules := h.catalog.ListModules()
	out := make([]apiModule, len(modules))
	for i, m := range modules {
		out[i] = apiModule{Module: m, Done: tr.IsModuleDone(m.ID)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAPIModule(w http.ResponseWriter, r *http.Request) {
	m, err := h.catalog.GetModule(chi.URLParam(r, "moduleID"))
	if err != nil {
		h.apiFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiModule{Module: m, Done: h.tracker(r.Context()).IsModuleDone(m.ID)})
}

func (h *Handler) handleAPICases(w http.ResponseWriter, r *http.Request) {
	tr := h.tracker(r.Context())
	cases := h.catalog.ListCases()
	out := make([]apiCase, len(cases))
	for i, cs := range cases {
		out[i] = toAPICase(cs, tr.IsCaseDone(cs.ID))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAPICase(w http.ResponseWriter, r *http.Request) {
	cs, err := h.catalog.GetCase(chi.URLParam(r, "caseID"))
	if err != nil {
		h.apiFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPICase(cs, h.tracker(r.Context()).IsCaseDone(cs.ID)))
}

func (h *Handler) handleAPIProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker(r.Context()).Snapshot())
}

func (h *Handler) apiFail(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
}

func toAPICase(cs model.Case, done bool) apiCase {
	qs := make([]apiQuestion, len(cs.Questions))
	for i, q := range cs.Questions {
		qs[i] = apiQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
	}
	return apiCase{ID: cs.ID, Title: cs.Title, History: cs.History, Done: done, Questions: qs}
}

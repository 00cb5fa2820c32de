package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/retina/internal/grading"
	"github.com/pavelanni/retina/internal/handler/views"
	appI18n "github.com/pavelanni/retina/internal/i18n"
	"github.com/pavelanni/retina/internal/model"
	"github.com/pavelanni/retina/internal/progress"
	"github.com/pavelanni/retina/internal/tutor"
)

const tutorTimeout = 30 * time.Second

// questionOutcome is the result of the last action on one question, shown
// inline on the cases page.
type questionOutcome struct {
	CaseID         string
	QuestionID     string
	Selected       string
	Result         model.CheckResult
	AlreadyCounted bool
	TutorText      string
	TutorFailed    bool
}

func (h *Handler) tracker(ctx context.Context) *progress.Tracker {
	return progress.NewTracker(h.catalog, h.sessions.Progress(ctx))
}

// handleSection renders one navigation section.
func (h *Handler) handleSection(sec model.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := h.tracker(r.Context())

		switch sec {
		case model.SectionCurriculum:
			h.renderCurriculum(w, r, tr)
		case model.SectionCases:
			h.renderCases(w, r, tr, nil)
		case model.SectionProgress:
			h.renderProgress(w, r, tr)
		case model.SectionAbout:
			data := views.AboutData{
				Page:      views.NewPage(model.SectionAbout),
				Modules:   len(h.catalog.ModuleIDs()),
				Cases:     len(h.catalog.CaseIDs()),
				Questions: h.catalog.QuestionCount(),
			}
			for _, tag := range appI18n.Languages() {
				data.Languages = append(data.Languages, tag.String())
			}
			h.render(w, r, views.AboutPage(data))
		default:
			h.fail(w, r, fmt.Errorf("section %q: %w", sec, model.ErrNotFound))
		}
	}
}

func (h *Handler) renderCurriculum(w http.ResponseWriter, r *http.Request, tr *progress.Tracker) {
	modules := h.catalog.ListModules()
	mvs := make([]views.ModuleView, len(modules))
	for i, m := range modules {
		topics := make([]views.TopicView, len(m.Topics))
		for j, t := range m.Topics {
			topics[j] = views.TopicView{Topic: t}
			if t.Image != "" {
				img := h.assets.Lookup(t.Image)
				topics[j].Image = &img
			}
		}
		mvs[i] = views.ModuleView{Module: m, Done: tr.IsModuleDone(m.ID), Topics: topics}
	}
	h.render(w, r, views.CurriculumPage(views.CurriculumData{
		Page:     views.NewPage(model.SectionCurriculum),
		Modules:  mvs,
		Progress: tr.Snapshot(),
	}))
}

// renderCases renders every case with a fresh check id per question form.
func (h *Handler) renderCases(w http.ResponseWriter, r *http.Request, tr *progress.Tracker, out *questionOutcome) {
	cases := h.catalog.ListCases()
	cvs := make([]views.CaseView, len(cases))
	for i, cs := range cases {
		cv := views.CaseView{Case: cs, Done: tr.IsCaseDone(cs.ID)}
		for j, q := range cs.Questions {
			checkID, err := generateToken()
			if err != nil {
				h.fail(w, r, fmt.Errorf("generate check id: %w", err))
				return
			}
			qv := views.QuestionView{Question: q, N: j + 1, CheckID: checkID}
			if out != nil && out.CaseID == cs.ID && out.QuestionID == q.ID {
				res := out.Result
				qv.Selected = out.Selected
				qv.Result = &res
				qv.AlreadyCounted = out.AlreadyCounted
				qv.TutorText = out.TutorText
				qv.TutorFailed = out.TutorFailed
				cv.Open = true
			}
			cv.Questions = append(cv.Questions, qv)
		}
		cvs[i] = cv
	}
	h.render(w, r, views.CasesPage(views.CasesData{
		Page:         views.NewPage(model.SectionCases),
		Cases:        cvs,
		Score:        tr.Score(),
		TutorEnabled: h.tutor != nil,
	}))
}

func (h *Handler) renderProgress(w http.ResponseWriter, r *http.Request, tr *progress.Tracker) {
	snap := tr.Snapshot()
	data := views.ProgressData{Page: views.NewPage(model.SectionProgress), Progress: snap}
	for _, id := range snap.CompletedModules {
		if m, err := h.catalog.GetModule(id); err == nil {
			data.CompletedModules = append(data.CompletedModules, m)
		}
	}
	for _, id := range snap.CompletedCases {
		if cs, err := h.catalog.GetCase(id); err == nil {
			data.CompletedCases = append(data.CompletedCases, cs)
		}
	}
	h.render(w, r, views.ProgressPage(data))
}

// mutate applies fn to the session's progress, saves it and redirects back
// to the section named by the "return" form field.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(*progress.Tracker) error) {
	tr := h.tracker(r.Context())
	if err := fn(tr); err != nil {
		h.fail(w, r, err)
		return
	}
	h.sessions.SaveProgress(r.Context(), tr.Progress())

	sec, ok := model.ParseSection(r.FormValue("return"))
	if !ok {
		sec = model.SectionCurriculum
	}
	http.Redirect(w, r, h.path("/"+string(sec)), http.StatusSeeOther)
}

func (h *Handler) handleMarkModuleDone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "moduleID")
	h.mutate(w, r, func(tr *progress.Tracker) error { return tr.MarkModuleDone(id) })
}

func (h *Handler) handleUnmarkModuleDone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "moduleID")
	h.mutate(w, r, func(tr *progress.Tracker) error {
		if !h.catalog.HasModule(id) {
			return fmt.Errorf("unmark module %q: %w", id, model.ErrNotFound)
		}
		tr.UnmarkModuleDone(id)
		return nil
	})
}

func (h *Handler) handleMarkAllModulesDone(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(tr *progress.Tracker) error {
		tr.MarkAllModulesDone()
		return nil
	})
}

func (h *Handler) handleMarkCaseDone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "caseID")
	h.mutate(w, r, func(tr *progress.Tracker) error { return tr.MarkCaseDone(id) })
}

func (h *Handler) handleUnmarkCaseDone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "caseID")
	h.mutate(w, r, func(tr *progress.Tracker) error {
		if !h.catalog.HasCase(id) {
			return fmt.Errorf("unmark case %q: %w", id, model.ErrNotFound)
		}
		tr.UnmarkCaseDone(id)
		return nil
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(tr *progress.Tracker) error {
		tr.Reset()
		return nil
	})
}

// handleCheck grades one answer. A check id is applied at most once per
// session, so reloading or resubmitting the same form never re-scores.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cmd := model.CheckCommand{
		ID:         r.FormValue("check_id"),
		CaseID:     chi.URLParam(r, "caseID"),
		QuestionID: chi.URLParam(r, "questionID"),
		Selected:   r.FormValue("option"),
	}

	_, q, err := h.catalog.GetQuestion(cmd.CaseID, cmd.QuestionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if cmd.ID == "" {
		h.fail(w, r, fmt.Errorf("check %s/%s: missing check id: %w", cmd.CaseID, cmd.QuestionID, model.ErrInvalidSelection))
		return
	}
	res, err := grading.Check(q, cmd.Selected)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tr := h.tracker(ctx)
	already := tr.CheckApplied(cmd.ID)
	if !already {
		tr.ApplyCheck(cmd, res)
		h.sessions.SaveProgress(ctx, tr.Progress())
		if h.store != nil {
			if _, err := h.store.RecordCheck(cmd, res.Correct); err != nil {
				slog.Error("failed to record check", "case_id", cmd.CaseID, "question_id", cmd.QuestionID, "error", err)
			}
		}
	}
	slog.Debug("answer checked", "case_id", cmd.CaseID, "question_id", cmd.QuestionID,
		"correct", res.Correct, "already_counted", already, "score", tr.Score())

	h.renderCases(w, r, tr, &questionOutcome{
		CaseID:         cmd.CaseID,
		QuestionID:     cmd.QuestionID,
		Selected:       cmd.Selected,
		Result:         res,
		AlreadyCounted: already,
	})
}

// handleExplain asks the tutor to elaborate on a checked question. It never
// changes progress.
func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	if h.tutor == nil {
		http.NotFound(w, r)
		return
	}
	caseID := chi.URLParam(r, "caseID")
	questionID := chi.URLParam(r, "questionID")
	selected := r.FormValue("option")

	cs, q, err := h.catalog.GetQuestion(caseID, questionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := grading.Check(q, selected)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := &questionOutcome{
		CaseID:     caseID,
		QuestionID: questionID,
		Selected:   selected,
		Result:     res,
	}
	ctx, cancel := context.WithTimeout(r.Context(), tutorTimeout)
	defer cancel()
	text, err := h.tutor.Elaborate(ctx, tutor.Request{
		Case:            cs,
		Question:        q,
		Selected:        selected,
		Correct:         res.Correct,
		LearnerQuestion: strings.TrimSpace(r.FormValue("question")),
	})
	if err != nil {
		slog.Warn("tutor failed", "case_id", caseID, "question_id", questionID, "error", err)
		out.TutorFailed = true
	} else {
		out.TutorText = text
	}

	h.renderCases(w, r, h.tracker(r.Context()), out)
}

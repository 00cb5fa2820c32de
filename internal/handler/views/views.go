// Package views holds the templ components for the HTML pages.
package views

//go:generate templ generate

import (
	"context"

	"github.com/pavelanni/retina/internal/assets"
	"github.com/pavelanni/retina/internal/model"
)

// Page is the data shared by every page.
type Page struct {
	Section  model.Section
	Sections []model.Section
}

// NewPage returns the layout data for section.
func NewPage(section model.Section) Page {
	return Page{Section: section, Sections: model.Sections()}
}

// TopicView is a topic with its image lookup.
type TopicView struct {
	model.Topic
	Image *assets.Image
}

// ModuleView is a module with its completion state.
type ModuleView struct {
	model.Module
	Done   bool
	Topics []TopicView
}

// CurriculumData feeds CurriculumPage.
type CurriculumData struct {
	Page
	Modules  []ModuleView
	Progress model.ProgressSnapshot
}

// QuestionView is a question form with the outcome of the last action on it.
type QuestionView struct {
	model.Question
	N              int
	CheckID        string
	Selected       string
	Result         *model.CheckResult
	AlreadyCounted bool
	TutorText      string
	TutorFailed    bool
}

// CaseView is a case with its completion state.
type CaseView struct {
	model.Case
	Done      bool
	Open      bool
	Questions []QuestionView
}

// CasesData feeds CasesPage.
type CasesData struct {
	Page
	Cases        []CaseView
	Score        int
	TutorEnabled bool
}

// ProgressData feeds ProgressPage.
type ProgressData struct {
	Page
	Progress         model.ProgressSnapshot
	CompletedModules []model.Module
	CompletedCases   []model.Case
}

// AboutData feeds AboutPage.
type AboutData struct {
	Page
	Modules   int
	Cases     int
	Questions int
	Languages []string
}

// pathFor prefixes p with the request's base path.
func pathFor(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

// optionChecked preselects the last submitted option, or the first one.
func optionChecked(q QuestionView, i int, opt string) bool {
	if q.Selected == "" {
		return i == 0
	}
	return opt == q.Selected
}

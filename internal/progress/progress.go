// Package progress owns per-session progress and is its only mutation path.
package progress

import (
	"encoding/gob"
	"fmt"
	"math"

	"github.com/pavelanni/retina/internal/catalog"
	"github.com/pavelanni/retina/internal/model"
)

// MaxAppliedChecks bounds how many check ids a session remembers. Once the
// limit is reached the oldest ids are forgotten first.
const MaxAppliedChecks = 256

func init() {
	// Progress values are stored in scs sessions, which gob-encode them.
	gob.Register(Progress{})
}

// Progress is one session's state. The zero value is a fresh session.
// Fields are exported for gob; mutate only through a Tracker.
type Progress struct {
	CompletedModules map[string]bool
	CompletedCases   map[string]bool
	QuizScore        int
	AppliedChecks    map[string]bool
	CheckOrder       []string // applied ids, oldest first
}

// New returns an empty Progress.
func New() *Progress {
	p := &Progress{}
	p.init()
	return p
}

// gob drops empty maps, so decoded values may need this too.
func (p *Progress) init() {
	if p.CompletedModules == nil {
		p.CompletedModules = make(map[string]bool)
	}
	if p.CompletedCases == nil {
		p.CompletedCases = make(map[string]bool)
	}
	if p.AppliedChecks == nil {
		p.AppliedChecks = make(map[string]bool)
	}
}

// Tracker binds a session's Progress to the catalog.
type Tracker struct {
	cat *catalog.Catalog
	p   *Progress
}

// NewTracker returns a tracker mutating p. A nil p starts a fresh Progress.
func NewTracker(cat *catalog.Catalog, p *Progress) *Tracker {
	if p == nil {
		p = New()
	}
	p.init()
	return &Tracker{cat: cat, p: p}
}

// Progress returns the tracked value.
func (t *Tracker) Progress() *Progress { return t.p }

// MarkModuleDone records a module as completed. Marking twice is a no-op.
func (t *Tracker) MarkModuleDone(id string) error {
	if !t.cat.HasModule(id) {
		return fmt.Errorf("mark module %q: %w", id, model.ErrNotFound)
	}
	t.p.CompletedModules[id] = true
	return nil
}

// UnmarkModuleDone removes a module from the completed set.
func (t *Tracker) UnmarkModuleDone(id string) {
	delete(t.p.CompletedModules, id)
}

// MarkAllModulesDone sets the completed set to every catalog module.
func (t *Tracker) MarkAllModulesDone() {
	t.p.CompletedModules = make(map[string]bool)
	for _, id := range t.cat.ModuleIDs() {
		t.p.CompletedModules[id] = true
	}
}

// MarkCaseDone records a case as completed. Marking twice is a no-op.
func (t *Tracker) MarkCaseDone(id string) error {
	if !t.cat.HasCase(id) {
		return fmt.Errorf("mark case %q: %w", id, model.ErrNotFound)
	}
	t.p.CompletedCases[id] = true
	return nil
}

// UnmarkCaseDone removes a case from the completed set.
func (t *Tracker) UnmarkCaseDone(id string) {
	delete(t.p.CompletedCases, id)
}

// Reset clears completions, the score and the applied check ids.
func (t *Tracker) Reset() {
	t.p.CompletedModules = make(map[string]bool)
	t.p.CompletedCases = make(map[string]bool)
	t.p.AppliedChecks = make(map[string]bool)
	t.p.CheckOrder = nil
	t.p.QuizScore = 0
}

// ApplyCheck applies a graded check command. The score goes up by one only
// if the result is correct and the command id has not been applied before.
// It reports whether the score changed.
func (t *Tracker) ApplyCheck(cmd model.CheckCommand, res model.CheckResult) bool {
	if cmd.ID == "" || t.p.AppliedChecks[cmd.ID] {
		return false
	}
	t.remember(cmd.ID)
	if !res.Correct {
		return false
	}
	t.p.QuizScore++
	return true
}

func (t *Tracker) remember(id string) {
	t.p.AppliedChecks[id] = true
	t.p.CheckOrder = append(t.p.CheckOrder, id)
	for len(t.p.CheckOrder) > MaxAppliedChecks {
		delete(t.p.AppliedChecks, t.p.CheckOrder[0])
		t.p.CheckOrder = t.p.CheckOrder[1:]
	}
}

// CheckApplied reports whether a check command id was already applied.
func (t *Tracker) CheckApplied(id string) bool {
	return t.p.AppliedChecks[id]
}

// Score returns the cumulative quiz score.
func (t *Tracker) Score() int { return t.p.QuizScore }

// IsModuleDone reports whether the module is marked completed.
func (t *Tracker) IsModuleDone(id string) bool { return t.p.CompletedModules[id] }

// IsCaseDone reports whether the case is marked completed.
func (t *Tracker) IsCaseDone(id string) bool { return t.p.CompletedCases[id] }

// CompletionRatio is the fraction of catalog modules marked done, or 0 for
// an empty catalog.
func (t *Tracker) CompletionRatio() float64 {
	ids := t.cat.ModuleIDs()
	if len(ids) == 0 {
		return 0
	}
	done := 0
	for _, id := range ids {
		if t.p.CompletedModules[id] {
			done++
		}
	}
	return float64(done) / float64(len(ids))
}

// CompletionPercent is CompletionRatio rounded to a whole percent.
func (t *Tracker) CompletionPercent() int {
	return int(math.Round(t.CompletionRatio() * 100))
}

// Snapshot returns a display copy of the progress.
func (t *Tracker) Snapshot() model.ProgressSnapshot {
	return model.ProgressSnapshot{
		CompletedModules: t.doneIn(t.cat.ModuleIDs(), t.p.CompletedModules),
		CompletedCases:   t.doneIn(t.cat.CaseIDs(), t.p.CompletedCases),
		QuizScore:        t.p.QuizScore,
		TotalModules:     len(t.cat.ModuleIDs()),
		TotalCases:       len(t.cat.CaseIDs()),
		CompletionRatio:  t.CompletionRatio(),
		Percent:          t.CompletionPercent(),
	}
}

// doneIn lists the completed ids in catalog order. Ids no longer in the
// catalog are left out.
func (t *Tracker) doneIn(order []string, done map[string]bool) []string {
	out := []string{}
	for _, id := range order {
		if done[id] {
			out = append(out, id)
		}
	}
	return out
}

// Package catalog holds the immutable curriculum and case bank.
package catalog

import (
	"errors"
	"fmt"

	"github.com/pavelanni/retina/internal/model"
)

// Catalog is the read-only module and case collection loaded at startup.
type Catalog struct {
	modules   []model.Module
	cases     []model.Case
	moduleIdx map[string]int
	caseIdx   map[string]int
	hash      string
	source    string
}

// New builds a catalog from parsed data and validates it. Questions without
// an id are numbered q1, q2, ... within their case.
func New(f model.CatalogFile) (*Catalog, error) {
	c := &Catalog{
		modules:   cloneModules(f.Modules),
		cases:     cloneCases(f.Cases),
		moduleIdx: make(map[string]int, len(f.Modules)),
		caseIdx:   make(map[string]int, len(f.Cases)),
	}
	for i := range c.cases {
		for j := range c.cases[i].Questions {
			if c.cases[i].Questions[j].ID == "" {
				c.cases[i].Questions[j].ID = fmt.Sprintf("q%d", j+1)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	for i, m := range c.modules {
		c.moduleIdx[m.ID] = i
	}
	for i, cs := range c.cases {
		c.caseIdx[cs.ID] = i
	}
	return c, nil
}

// Validate checks the catalog integrity rules and reports every violation.
func (c *Catalog) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{model.ErrInvalidCatalog}, args...)...))
	}

	seenModules := make(map[string]bool)
	for i, m := range c.modules {
		if m.ID == "" {
			bad("module #%d has no id", i+1)
			continue
		}
		if seenModules[m.ID] {
			bad("duplicate module id %q", m.ID)
		}
		seenModules[m.ID] = true
	}

	seenCases := make(map[string]bool)
	for i, cs := range c.cases {
		if cs.ID == "" {
			bad("case #%d has no id", i+1)
			continue
		}
		if seenCases[cs.ID] {
			bad("duplicate case id %q", cs.ID)
		}
		seenCases[cs.ID] = true

		seenQuestions := make(map[string]bool)
		for _, q := range cs.Questions {
			if seenQuestions[q.ID] {
				bad("case %q: duplicate question id %q", cs.ID, q.ID)
			}
			seenQuestions[q.ID] = true

			if len(q.Options) == 0 {
				bad("case %q question %q: no options", cs.ID, q.ID)
				continue
			}
			seenOptions := make(map[string]bool)
			for _, o := range q.Options {
				if seenOptions[o] {
					bad("case %q question %q: duplicate option %q", cs.ID, q.ID, o)
				}
				seenOptions[o] = true
			}
			if !seenOptions[q.CorrectOption] {
				bad("case %q question %q: correct option %q is not among the options", cs.ID, q.ID, q.CorrectOption)
			}
		}
	}

	return errors.Join(errs...)
}

// ListModules returns all modules in author order.
func (c *Catalog) ListModules() []model.Module {
	return cloneModules(c.modules)
}

// ListCases returns all cases in author order.
func (c *Catalog) ListCases() []model.Case {
	return cloneCases(c.cases)
}

// GetModule returns the module with the given id.
func (c *Catalog) GetModule(id string) (model.Module, error) {
	i, ok := c.moduleIdx[id]
	if !ok {
		return model.Module{}, fmt.Errorf("module %q: %w", id, model.ErrNotFound)
	}
	return cloneModule(c.modules[i]), nil
}

// GetCase returns the case with the given id.
func (c *Catalog) GetCase(id string) (model.Case, error) {
	i, ok := c.caseIdx[id]
	if !ok {
		return model.Case{}, fmt.Errorf("case %q: %w", id, model.ErrNotFound)
	}
	return cloneCase(c.cases[i]), nil
}

// GetQuestion returns a question together with its case.
func (c *Catalog) GetQuestion(caseID, questionID string) (model.Case, model.Question, error) {
	cs, err := c.GetCase(caseID)
	if err != nil {
		return model.Case{}, model.Question{}, err
	}
	for _, q := range cs.Questions {
		if q.ID == questionID {
			return cs, q, nil
		}
	}
	return model.Case{}, model.Question{}, fmt.Errorf("case %q question %q: %w", caseID, questionID, model.ErrNotFound)
}

// HasModule reports whether id is a catalog module.
func (c *Catalog) HasModule(id string) bool {
	_, ok := c.moduleIdx[id]
	return ok
}

// HasCase reports whether id is a catalog case.
func (c *Catalog) HasCase(id string) bool {
	_, ok := c.caseIdx[id]
	return ok
}

// ModuleIDs returns module ids in author order.
func (c *Catalog) ModuleIDs() []string {
	ids := make([]string, len(c.modules))
	for i, m := range c.modules {
		ids[i] = m.ID
	}
	return ids
}

// CaseIDs returns case ids in author order.
func (c *Catalog) CaseIDs() []string {
	ids := make([]string, len(c.cases))
	for i, cs := range c.cases {
		ids[i] = cs.ID
	}
	return ids
}

// QuestionCount returns the number of questions across all cases.
func (c *Catalog) QuestionCount() int {
	n := 0
	for _, cs := range c.cases {
		n += len(cs.Questions)
	}
	return n
}

// Hash returns the sha256 of the source bytes, or "" for catalogs built in memory.
func (c *Catalog) Hash() string { return c.hash }

// Source returns where the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

func cloneModule(m model.Module) model.Module {
	m.Objectives = append([]string(nil), m.Objectives...)
	m.Topics = append([]model.Topic(nil), m.Topics...)
	return m
}

func cloneModules(ms []model.Module) []model.Module {
	out := make([]model.Module, len(ms))
	for i, m := range ms {
		out[i] = cloneModule(m)
	}
	return out
}

func cloneCase(cs model.Case) model.Case {
	qs := make([]model.Question, len(cs.Questions))
	for i, q := range cs.Questions {
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
	}
	cs.Questions = qs
	return cs
}

func cloneCases(cs []model.Case) []model.Case {
	out := make([]model.Case, len(cs))
	for i, c := range cs {
		out[i] = cloneCase(c)
	}
	return out
}

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavelanni/retina/internal/model"
)

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return c
}

func TestDefaultCatalog(t *testing.T) {
	c := defaultCatalog(t)

	if got := c.ModuleIDs(); len(got) != 3 || got[0] != "foundations" || got[1] != "medical_retina" || got[2] != "surgical_retina" {
		t.Errorf("ModuleIDs() = %v", got)
	}
	if got := c.CaseIDs(); len(got) != 2 || got[0] != "case1" || got[1] != "case2" {
		t.Errorf("CaseIDs() = %v", got)
	}
	if c.QuestionCount() != 4 {
		t.Errorf("QuestionCount() = %d, want 4", c.QuestionCount())
	}
	if c.Hash() == "" {
		t.Error("expected non-empty hash for builtin catalog")
	}
	if c.Source() != defaultSource {
		t.Errorf("Source() = %q", c.Source())
	}

	m, err := c.GetModule("medical_retina")
	if err != nil {
		t.Fatalf("GetModule: %v", err)
	}
	if len(m.Topics) != 3 || m.Topics[1].ID != "amd" || m.Topics[1].Image != "amd_oct.jpg" {
		t.Errorf("unexpected medical_retina topics: %+v", m.Topics)
	}
	if m.Topics[2].Image != "" {
		t.Errorf("expected no image for vascular_occlusions, got %q", m.Topics[2].Image)
	}
}

func TestCatalogIntegrity(t *testing.T) {
	c := defaultCatalog(t)

	seen := make(map[string]bool)
	for _, m := range c.ListModules() {
		if seen[m.ID] {
			t.Errorf("duplicate module id %q", m.ID)
		}
		seen[m.ID] = true
	}

	seen = make(map[string]bool)
	for _, cs := range c.ListCases() {
		if seen[cs.ID] {
			t.Errorf("duplicate case id %q", cs.ID)
		}
		seen[cs.ID] = true

		qs := make(map[string]bool)
		for _, q := range cs.Questions {
			if qs[q.ID] {
				t.Errorf("case %s: duplicate question id %q", cs.ID, q.ID)
			}
			qs[q.ID] = true
			if !q.HasOption(q.CorrectOption) {
				t.Errorf("case %s question %s: correct option %q not in %v", cs.ID, q.ID, q.CorrectOption, q.Options)
			}
		}
	}
}

func TestQuestionIDsDerived(t *testing.T) {
	c := defaultCatalog(t)

	cs, q, err := c.GetQuestion("case1", "q2")
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if cs.Title != "Sudden Curtain Vision Loss" {
		t.Errorf("case title = %q", cs.Title)
	}
	if q.CorrectOption != "B-scan Ultrasound" {
		t.Errorf("correct option = %q", q.CorrectOption)
	}
}

func TestNotFound(t *testing.T) {
	c := defaultCatalog(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"module", func() error { _, err := c.GetModule("nonexistent"); return err }},
		{"case", func() error { _, err := c.GetCase("case9"); return err }},
		{"question in unknown case", func() error { _, _, err := c.GetQuestion("case9", "q1"); return err }},
		{"unknown question", func() error { _, _, err := c.GetQuestion("case1", "q9"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, model.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestListReturnsCopies(t *testing.T) {
	c := defaultCatalog(t)

	mods := c.ListModules()
	mods[0].Title = "changed"
	mods[0].Objectives[0] = "changed"

	cases := c.ListCases()
	cases[0].Questions[0].Options[0] = "changed"

	m, _ := c.GetModule("foundations")
	if m.Title == "changed" || m.Objectives[0] == "changed" {
		t.Error("ListModules leaked internal state")
	}
	_, q, _ := c.GetQuestion("case1", "q1")
	if q.Options[0] == "changed" {
		t.Error("ListCases leaked internal state")
	}
}

func TestValidate(t *testing.T) {
	okQuestion := model.Question{ID: "q1", Prompt: "?", Options: []string{"A", "B"}, CorrectOption: "A"}

	tests := []struct {
		name    string
		file    model.CatalogFile
		wantErr bool
	}{
		{"empty catalog", model.CatalogFile{}, false},
		{"valid", model.CatalogFile{
			Modules: []model.Module{{ID: "m1"}, {ID: "m2"}},
			Cases:   []model.Case{{ID: "c1", Questions: []model.Question{okQuestion}}},
		}, false},
		{"duplicate module", model.CatalogFile{
			Modules: []model.Module{{ID: "m1"}, {ID: "m1"}},
		}, true},
		{"missing module id", model.CatalogFile{
			Modules: []model.Module{{Title: "untitled"}},
		}, true},
		{"duplicate case", model.CatalogFile{
			Cases: []model.Case{{ID: "c1"}, {ID: "c1"}},
		}, true},
		{"duplicate question", model.CatalogFile{
			Cases: []model.Case{{ID: "c1", Questions: []model.Question{okQuestion, okQuestion}}},
		}, true},
		{"correct not in options", model.CatalogFile{
			Cases: []model.Case{{ID: "c1", Questions: []model.Question{
				{ID: "q1", Options: []string{"A", "B"}, CorrectOption: "a"},
			}}},
		}, true},
		{"duplicate option", model.CatalogFile{
			Cases: []model.Case{{ID: "c1", Questions: []model.Question{
				{ID: "q1", Options: []string{"A", "A"}, CorrectOption: "A"},
			}}},
		}, true},
		{"no options", model.CatalogFile{
			Cases: []model.Case{{ID: "c1", Questions: []model.Question{{ID: "q1"}}}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.file)
			if tt.wantErr {
				if !errors.Is(err, model.ErrInvalidCatalog) {
					t.Errorf("expected ErrInvalidCatalog, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "cat.json")
	if err := os.WriteFile(jsonPath, []byte(`{
		"modules": [{"id": "m1", "title": "One", "objectives": ["o"], "topics": []}],
		"cases": [{"id": "c1", "title": "Case", "history": "h", "questions": [
			{"prompt": "p", "options": ["x", "y"], "correct_option": "y", "explanation": "e"}
		]}]
	}`), 0o644); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "cat.yml")
	if err := os.WriteFile(yamlPath, []byte(`
modules:
  - id: m1
    title: One
cases:
  - id: c1
    title: Case
    questions:
      - id: first
        prompt: p
        options: [x, y]
        correct_option: x
`), 0o644); err != nil {
		t.Fatal(err)
	}

	jc, err := Load(jsonPath)
	if err != nil {
		t.Fatalf("Load json: %v", err)
	}
	if _, _, err := jc.GetQuestion("c1", "q1"); err != nil {
		t.Errorf("json question id not derived: %v", err)
	}
	if jc.Source() != jsonPath {
		t.Errorf("Source() = %q", jc.Source())
	}

	yc, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	if _, _, err := yc.GetQuestion("c1", "first"); err != nil {
		t.Errorf("explicit yaml question id lost: %v", err)
	}
	if jc.Hash() == yc.Hash() {
		t.Error("different files should hash differently")
	}

	if _, err := Load(filepath.Join(dir, "cat.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	txtPath := filepath.Join(dir, "cat.toml")
	if err := os.WriteFile(txtPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(txtPath); err == nil {
		t.Error("expected error for unsupported format")
	}

	dc, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if len(dc.ListModules()) != 3 {
		t.Errorf("Load(\"\") should return builtin catalog")
	}
}

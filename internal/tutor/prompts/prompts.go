package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var FS embed.FS

var (
	learnerQuestionRegex    = regexp.MustCompile(`(?i)</?\s*learner-question\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxQuestionRunes = 2000

// Variant selects how much detail the tutor gives.
type Variant string

const (
	// VariantBrief asks for two or three sentences.
	VariantBrief Variant = "brief"
	// VariantStandard is the default.
	VariantStandard Variant = "standard"
	// VariantDetailed asks for a structured teaching answer.
	VariantDetailed Variant = "detailed"
)

var validVariants = map[Variant]bool{
	VariantBrief:    true,
	VariantStandard: true,
	VariantDetailed: true,
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Variant]*template.Template
)

// IsValidVariant checks if a variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// ElaborateData holds template data for elaboration prompts.
type ElaborateData struct {
	CaseTitle       string
	History         string
	Prompt          string
	Options         []string
	CorrectOption   string
	Selected        string
	Correct         bool
	Explanation     string
	LearnerQuestion string
}

// Load parses the prompt templates from fsys once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		templates = make(map[Variant]*template.Template)
		for _, v := range []Variant{VariantBrief, VariantStandard, VariantDetailed} {
			file := "templates/elaborate_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New("elaborate").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// BuildElaboratePrompt renders the system prompt for one variant.
func BuildElaboratePrompt(variant Variant, data ElaborateData) (string, error) {
	if templates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data.LearnerQuestion = sanitizeQuestion(data.LearnerQuestion)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeQuestion(q string) string {
	q = learnerQuestionRegex.ReplaceAllString(q, "")
	q = systemInstructionsRegex.ReplaceAllString(q, "")
	q = strings.TrimSpace(q)

	if utf8.RuneCountInString(q) > maxQuestionRunes {
		runes := []rune(q)
		q = string(runes[:maxQuestionRunes]) + " [truncated]"
	}
	return q
}

package model

// Section is the top-level navigation entry currently shown.
type Section string

const (
	SectionCurriculum Section = "curriculum"
	SectionCases      Section = "cases"
	SectionProgress   Section = "progress"
	SectionAbout      Section = "about"
)

var sections = []Section{SectionCurriculum, SectionCases, SectionProgress, SectionAbout}

// Sections returns the navigation menu in display order. The first entry is
// the initial section.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// ParseSection maps a URL segment to a Section.
func ParseSection(s string) (Section, bool) {
	for _, sec := range sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// MessageID returns the i18n message id for the section's menu label.
func (s Section) MessageID() string {
	switch s {
	case SectionCurriculum:
		return "NavCurriculum"
	case SectionCases:
		return "NavCases"
	case SectionProgress:
		return "NavProgress"
	case SectionAbout:
		return "NavAbout"
	}
	return string(s)
}

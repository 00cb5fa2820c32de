package model

import "time"

// StatsExport is the top-level JSON structure for answer-check statistics.
type StatsExport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	CatalogHash string         `json:"catalog_hash"`
	TotalChecks int            `json:"total_checks"`
	Questions   []QuestionStat `json:"questions"`
}

// QuestionStat holds aggregated check counts for one question.
type QuestionStat struct {
	CaseID     string         `json:"case_id"`
	CaseTitle  string         `json:"case_title,omitempty"`
	QuestionID string         `json:"question_id"`
	Prompt     string         `json:"prompt,omitempty"`
	Attempts   int            `json:"attempts"`
	Correct    int            `json:"correct"`
	Accuracy   float64        `json:"accuracy"`
	Selections map[string]int `json:"selections"`
}

package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/retina/internal/catalog"
	"github.com/pavelanni/retina/internal/model"
)

// ExportStats builds the statistics export. When cat is non-nil, case titles
// and prompts are filled in for questions it still contains.
func (s *Store) ExportStats(cat *catalog.Catalog) (model.StatsExport, error) {
	stats, err := s.QuestionStats()
	if err != nil {
		return model.StatsExport{}, fmt.Errorf("question stats: %w", err)
	}
	total, err := s.CheckCount()
	if err != nil {
		return model.StatsExport{}, fmt.Errorf("count checks: %w", err)
	}
	hash, err := s.CatalogHash()
	if err != nil {
		return model.StatsExport{}, fmt.Errorf("catalog hash: %w", err)
	}

	if cat != nil {
		for i := range stats {
			cs, q, err := cat.GetQuestion(stats[i].CaseID, stats[i].QuestionID)
			if err != nil {
				continue
			}
			stats[i].CaseTitle = cs.Title
			stats[i].Prompt = q.Prompt
		}
	}
	if stats == nil {
		stats = []model.QuestionStat{}
	}

	return model.StatsExport{
		GeneratedAt: time.Now().UTC(),
		CatalogHash: hash,
		TotalChecks: total,
		Questions:   stats,
	}, nil
}

// Package grading checks a single multiple-choice answer.
package grading

import (
	"fmt"

	"github.com/pavelanni/retina/internal/model"
)

// Check grades selected against q. The comparison is an exact, case-sensitive
// string match with no trimming. The stored explanation is returned whether
// or not the answer is correct. A selection outside q.Options is rejected.
func Check(q model.Question, selected string) (model.CheckResult, error) {
	if !q.HasOption(selected) {
		return model.CheckResult{}, fmt.Errorf("question %q option %q: %w", q.ID, selected, model.ErrInvalidSelection)
	}
	return model.CheckResult{
		Correct:     selected == q.CorrectOption,
		Explanation: q.Explanation,
	}, nil
}

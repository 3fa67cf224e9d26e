package pipeline

import (
	"context"
	"errors"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

// NumStages is the length of the fixed stage sequence
// fetch -> analyze -> transform -> integrate.
const NumStages = 4

var stageNames = [NumStages]string{"fetch", "analyze", "transform", "integrate"}

// StageName returns the human-readable name for a stage index.
func StageName(index int) string {
	if index < 0 || index >= NumStages {
		return "unknown"
	}
	return stageNames[index]
}

// Stage is one step of the import pipeline. It reads the accumulated context,
// merges its output into it on success, and returns a classified
// *domain.StageError on failure so the retry executor can decide
// retryability. Stages must honor ctx cancellation at their I/O points.
type Stage func(ctx context.Context, sc *domain.StageContext) error

// StageSet is the complete stage sequence a manager drives every job through.
type StageSet struct {
	Fetch     Stage
	Analyze   Stage
	Transform Stage
	Integrate Stage
}

func (s StageSet) list() [NumStages]Stage {
	return [NumStages]Stage{s.Fetch, s.Analyze, s.Transform, s.Integrate}
}

func (s StageSet) validate() error {
	for index, stage := range s.list() {
		if stage == nil {
			return errors.New("pipeline: missing " + StageName(index) + " stage")
		}
	}
	return nil
}

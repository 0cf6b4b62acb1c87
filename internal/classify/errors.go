package classify

import "fmt"

// Stage names the step of Classify that failed.
type Stage string

const (
	StagePrompt   Stage = "prompt"
	StageGenerate Stage = "generate"
	StageParse    Stage = "parse"
)

// ClassificationError is the only error type Classify returns. Cause may be nil.
type ClassificationError struct {
	Stage Stage
	Cause error
}

func (e *ClassificationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("classification failed at %s", e.Stage)
	}
	return fmt.Sprintf("classification failed at %s: %v", e.Stage, e.Cause)
}

func (e *ClassificationError) Unwrap() error {
	return e.Cause
}

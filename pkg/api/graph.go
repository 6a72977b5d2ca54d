package api

import "context"

// StageInfo carries a stage's statically declared state transitions. The
// runner consults it after a run: success advances the volume to
// SuccessState, failure to FailureState. Info is a pure function of the
// stage type; it never inspects the volume.
type StageInfo struct {
	SuccessState Status
	FailureState Status
}

// Stage is one unit of pipeline work over a volume. Implementations record
// failures internally via their base and report them through Failed and
// Err; Run never panics across the runner boundary.
type Stage interface {
	// Run executes the stage and reports whether it succeeded.
	Run(ctx context.Context) bool

	// Info returns the declared success and failure transitions.
	Info() StageInfo

	// Name is the stage's registered identifier.
	Name() string
	// Description is a short human readable description of the stage.
	Description() string

	// Failed reports whether the stage recorded an error.
	Failed() bool
	// Err returns the recorded error, or nil.
	Err() error

	// CleanAlways runs after the stage regardless of outcome.
	CleanAlways() error
	// CleanSuccess runs only after a successful stage.
	CleanSuccess() error
	// CleanFailure runs only after a failed stage.
	CleanFailure() error
}
